package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const page = `<html><head><title>Widgets &amp; Co</title><base href="https://shop.example.com/catalog/"></head>
<body>
  <nav><a href="/home">Home</a></nav>
  <div class="cookie-consent">We use cookies</div>
  <main>
    <h1>Blue Widget</h1>
    <p>The best widget in town.</p>
    <a href="details">Details</a>
    <a href="/cart#top">Cart</a>
    <a href="https://other.example.org/review">Review</a>
    <a href="details">Details again</a>
    <a href="mailto:sales@example.com">Mail</a>
    <a href="#reviews">Jump</a>
  </main>
  <footer>Copyright</footer>
</body></html>`

func TestFromHTML_OnlyMain(t *testing.T) {
	out := FromHTML(page, true)
	assert.Contains(t, out, "# Blue Widget")
	assert.Contains(t, out, "The best widget in town.")
	assert.NotContains(t, out, "Home")
	assert.NotContains(t, out, "cookies")
	assert.NotContains(t, out, "Copyright")
}

func TestFromHTML_WholeBody(t *testing.T) {
	out := FromHTML(page, false)
	assert.Contains(t, out, "Blue Widget")
	assert.Contains(t, out, "Copyright")
}

func TestClean(t *testing.T) {
	in := "# Title\r\n\n\n\n![logo](https://x/logo.png)\n[Read more](https://x/a)\ntext\u200B here\n[Read more](https://x/a)\nSep 12, 2024\nSep 12, 2024\n"
	assert.Equal(t, "# Title\n\n[Read more](https://x/a)\ntext here\nSep 12, 2024", Clean(in))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Widgets & Co", Title(page))
	assert.Empty(t, Title("<p>no title</p>"))
}

func TestLinks(t *testing.T) {
	assert.Equal(t, []string{
		"https://shop.example.com/home",
		"https://shop.example.com/catalog/details",
		"https://shop.example.com/cart",
		"https://other.example.org/review",
	}, Links(page, "https://shop.example.com/catalog/blue"))
}

func TestLinks_BadBase(t *testing.T) {
	assert.Nil(t, Links(page, "://nope"))
}
