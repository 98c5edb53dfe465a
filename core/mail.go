package core

import (
	"bytes"
	"fmt"
	"log"
	"net/mail"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"
)

var (
	templates tmplCache
	tmplInit  sync.Once
	tmplDir   string
)

type (
	tmplCache map[string]*texttmpl.Template // {name: *Template}

	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	// Sends are best-effort and asynchronous: a failed delivery is logged
	// and never surfaces to the operation that triggered it.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData(conf *Config) ContextData {
	return ContextData{
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(func() { parseEmailTemplates(conf) }) // only executed on first send

	tmpl, ok := templates[m.TemplateName]
	if !ok {
		return fmt.Errorf("unknown email template %q", m.TemplateName)
	}
	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData(conf)); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }

func parseEmailTemplates(conf *Config) {
	templates = make(tmplCache)

	rp := filepath.Join(conf.WorkDir, "assets", "templates", "email")
	fps, err := filepath.Glob(filepath.Join(rp, "*.txt"))
	if err != nil {
		log.Print(fmt.Errorf("core.parseEmailTemplates: %v", err))
	}

	for _, fp := range fps {
		fname := filepath.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := fname[:strings.LastIndex(fname, ".")]
		tmpl, err := texttmpl.ParseFiles(filepath.Join(rp, "_base.txt"), fp)
		if err != nil {
			log.Print(fmt.Errorf("core.parseEmailTemplates: %v", err))
			continue
		}
		if conf.Debug || conf.TestMode {
			tmpl = tmpl.Option("missingkey=error")
		}
		templates[name] = tmpl
	}
}
