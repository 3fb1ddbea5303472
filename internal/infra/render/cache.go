package render

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"
)

//go:embed templates/*.tmpl
var embedded embed.FS

const (
	templateDir  = "templates"
	layoutFile   = "layout.tmpl"
	subjectBlock = "subject"
	htmlBlock    = "html"
)

// Cache parses templates on first use and keeps them until invalidated.
type Cache struct {
	fsys   fs.FS
	logger *slog.Logger

	mu     sync.RWMutex
	parsed map[string]*template.Template
}

func NewCache(logger *slog.Logger) *Cache {
	sub, err := fs.Sub(embedded, templateDir)
	if err != nil {
		panic(err)
	}
	return NewCacheFS(sub, logger)
}

// NewCacheFS reads "<id>.tmpl" files plus a shared layout.tmpl from fsys.
func NewCacheFS(fsys fs.FS, logger *slog.Logger) *Cache {
	return &Cache{fsys: fsys, logger: logger, parsed: make(map[string]*template.Template)}
}

var _ shared.TemplateCache = (*Cache)(nil)

type view struct {
	EventType     string
	AttemptNumber int
	Customer      customerView
	Data          map[string]any
	Tenant        tenantView
	TenantName    string
}

type customerView struct {
	Name  string
	Email string
	Phone string
}

type tenantView struct {
	SenderName string
	ReplyTo    string
	SupportURL string
}

func (c *Cache) Render(templateID string, rc shared.RenderContext) (shared.Rendered, error) {
	tmpl, err := c.lookup(templateID)
	if err != nil {
		return shared.Rendered{}, err
	}

	data := view{
		EventType:     rc.EventType.String(),
		AttemptNumber: rc.AttemptNumber,
		Customer:      customerView{Name: rc.Customer.Name, Email: rc.Customer.Email, Phone: rc.Customer.Phone},
		Data:          rc.Data,
		Tenant:        tenantView{SenderName: rc.Tenant.SenderName, ReplyTo: rc.Tenant.ReplyTo, SupportURL: rc.Tenant.SupportURL},
		TenantName:    rc.TenantName,
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}

	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, subjectBlock, data); err != nil {
		return shared.Rendered{}, errs.Wrapf(err, "render subject of %s", templateID)
	}
	if err := tmpl.ExecuteTemplate(&body, htmlBlock, data); err != nil {
		return shared.Rendered{}, errs.Wrapf(err, "render body of %s", templateID)
	}

	return shared.Rendered{
		// subjects are plain text headers, undo the html escaping
		Subject: strings.TrimSpace(html.UnescapeString(subject.String())),
		HTML:    strings.TrimSpace(body.String()),
	}, nil
}

func (c *Cache) Invalidate(templateID string) {
	c.mu.Lock()
	delete(c.parsed, templateID)
	c.mu.Unlock()
	c.logger.Info("template cache entry invalidated", "template_id", templateID)
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.parsed = make(map[string]*template.Template)
	c.mu.Unlock()
	c.logger.Info("template cache cleared")
}

// Warm parses the given templates so missing files surface at startup.
func (c *Cache) Warm(ids []string) error {
	for _, id := range ids {
		if _, err := c.lookup(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) lookup(templateID string) (*template.Template, error) {
	c.mu.RLock()
	tmpl, ok := c.parsed[templateID]
	c.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	file := templateID + ".tmpl"
	if strings.ContainsAny(templateID, "/\\") || templateID == "" {
		return nil, errs.Mark(errs.Newf("invalid template id %q", templateID), errs.ErrTemplateNotFound)
	}
	if _, err := fs.Stat(c.fsys, file); err != nil {
		return nil, errs.Mark(errs.Wrapf(err, "template %s", templateID), errs.ErrTemplateNotFound)
	}

	tmpl, err := template.New(templateID).Option("missingkey=zero").ParseFS(c.fsys, layoutFile, file)
	if err != nil {
		return nil, errs.Wrapf(err, "parse template %s", templateID)
	}
	for _, block := range []string{subjectBlock, htmlBlock} {
		if tmpl.Lookup(block) == nil {
			return nil, errs.Mark(errs.Newf("template %s does not define %q", templateID, block), errs.ErrTemplateNotFound)
		}
	}

	c.mu.Lock()
	c.parsed[templateID] = tmpl
	c.mu.Unlock()
	return tmpl, nil
}
