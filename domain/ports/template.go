package ports

// TemplateEngine renders a manifest template before it is parsed.
type TemplateEngine interface {
	// Render executes raw with vars available as {{.vars.key}}.
	Render(raw []byte, vars map[string]string) ([]byte, error)
}
