package htmlclean

import (
	"strings"

	"quiz-agent/internal/application/port/output"

	"golang.org/x/net/html"
)

type Config struct {
	TagsToRemove  []string
	AttrsToRemove []string
	// DropPrefixes removes every attribute whose key starts with one of them.
	DropPrefixes []string
	// MaxOutputSize truncates the rendered body in bytes; zero disables it.
	MaxOutputSize int
}

// DefaultConfig keeps links, ids, classes and src attributes, which is where
// quiz pages put submit endpoints and data file locations.
func DefaultConfig() Config {
	return Config{
		TagsToRemove: []string{
			"script", "style", "noscript", "svg", "iframe",
			"link", "meta", "head", "title",
		},
		AttrsToRemove: []string{
			"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
		},
		DropPrefixes: []string{"on"},
	}
}

type Cleaner struct {
	cfg    Config
	logger output.LoggerPort
}

func New(cfg Config, logger output.LoggerPort) *Cleaner {
	return &Cleaner{cfg: cfg, logger: logger}
}

// Clean returns the cleaned <body>. Input that cannot be parsed or has no
// body is returned unchanged.
func (c *Cleaner) Clean(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		c.logger.Warn("HTML parse error, using raw document", "error", err)
		return rawHTML
	}

	body := findBody(doc)
	if body == nil {
		c.logger.Warn("No <body> in document, using raw document")
		return rawHTML
	}

	c.cleanNode(body)

	out := render(body)
	if c.cfg.MaxOutputSize > 0 && len(out) > c.cfg.MaxOutputSize {
		out = out[:c.cfg.MaxOutputSize] + "\n<!-- truncated -->"
	}

	c.logger.Debug("HTML cleaned", "before", len(rawHTML), "after", len(out))
	return out
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if b := findBody(ch); b != nil {
			return b
		}
	}
	return nil
}

func (c *Cleaner) cleanNode(n *html.Node) {
	switch n.Type {
	case html.CommentNode:
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	case html.ElementNode:
	default:
		return
	}

	if contains(c.cfg.TagsToRemove, n.Data) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}

	n.Attr = c.filterAttrs(n.Attr)

	for ch := n.FirstChild; ch != nil; {
		next := ch.NextSibling
		c.cleanNode(ch)
		ch = next
	}
}

func (c *Cleaner) filterAttrs(attrs []html.Attribute) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range attrs {
		if contains(c.cfg.AttrsToRemove, attr.Key) || hasAnyPrefix(attr.Key, c.cfg.DropPrefixes) {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func render(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
