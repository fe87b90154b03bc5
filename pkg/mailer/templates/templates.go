package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// VerifyEmail is the only template the platform sends.
const VerifyEmail = "verify_email"

// EmailData defines the fields available to email templates.
type EmailData struct {
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	AppName        string `json:"AppName"`

	LogoURL    string `json:"LogoURL"`
	SupportURL string `json:"SupportURL"`
	PrivacyURL string `json:"PrivacyURL"`

	VerifyURL string `json:"VerifyURL"`

	ExpiresAt     time.Time `json:"ExpiresAt"`
	ExpiresAtText string    `json:"ExpiresAtText"`
	IP            string    `json:"IP"`
	Location      string    `json:"Location"`
}

// ToMap flattens d into the map carried by a queued job.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// orDefault backs {{ .Value | default "Fallback" }}. Data arrives as decoded
// JSON, so only blank strings and nil count as empty.
func orDefault(fallback, value any) any {
	switch x := value.(type) {
	case nil:
		return fallback
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
	}
	return value
}

var funcs = map[string]any{
	"upper":   strings.ToUpper,
	"default": orDefault,
}

// set is the parsed subject, text and html parts of one template name.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*set{}
)

func load(name string) (*set, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[name]; ok {
		return s, nil
	}
	parseText := func(part string) (*texttpl.Template, error) {
		file := name + "." + part + ".tmpl"
		t, err := texttpl.New(file).Funcs(funcs).ParseFS(FS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", file, err)
		}
		return t, nil
	}
	subject, err := parseText("subject")
	if err != nil {
		return nil, err
	}
	text, err := parseText("text")
	if err != nil {
		return nil, err
	}
	htmlFile := name + ".html.tmpl"
	html, err := htmpl.New(htmlFile).Funcs(funcs).ParseFS(FS, htmlFile)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", htmlFile, err)
	}
	s := &set{subject: subject, text: text, html: html}
	cache[name] = s
	return s, nil
}

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
// Parsed templates are cached per name.
func Render(name string, data any) (subject, text, html string, err error) {
	s, err := load(name)
	if err != nil {
		return "", "", "", err
	}
	var sb, tb, hb bytes.Buffer
	if err := s.subject.Execute(&sb, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s subject: %w", name, err)
	}
	if err := s.text.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s text: %w", name, err)
	}
	if err := s.html.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s html: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), tb.String(), hb.String(), nil
}
