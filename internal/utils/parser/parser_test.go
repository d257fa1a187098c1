package parser

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Q       string   `form:"q"`
	Limit   *int     `form:"limit"`
	Fresh   bool     `form:"fresh"`
	Formats []string `form:"formats"`
	Ignored string
}

func bind(t *testing.T, target string) (params, error) {
	t.Helper()
	app := fiber.New()
	var (
		got     params
		bindErr error
	)
	app.Get("/", func(c *fiber.Ctx) error {
		got, bindErr = Query[params](c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	_, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	return got, bindErr
}

func TestQuery_BindsTaggedFields(t *testing.T) {
	p, err := bind(t, "/?q=golang+jobs&limit=3&fresh=true&formats=markdown,+html,&Ignored=x")
	require.NoError(t, err)
	assert.Equal(t, "golang jobs", p.Q)
	require.NotNil(t, p.Limit)
	assert.Equal(t, 3, *p.Limit)
	assert.True(t, p.Fresh)
	assert.Equal(t, []string{"markdown", "html"}, p.Formats)
	assert.Empty(t, p.Ignored)
}

func TestQuery_MissingLeavesZeroValues(t *testing.T) {
	p, err := bind(t, "/")
	require.NoError(t, err)
	assert.Equal(t, params{}, p)
}

func TestQuery_BadNumber(t *testing.T) {
	_, err := bind(t, "/?limit=ten")
	assert.ErrorContains(t, err, "invalid limit")
}
