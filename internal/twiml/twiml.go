// Package twiml holds the TwiML response templates and the small tree
// mutation layer the call-flow handlers drive. Templates are static,
// version-controlled files with known element paths; validation effort
// is spent on caller input, not on template structure.
package twiml

import (
	"embed"
	"fmt"

	"github.com/beevik/etree"
)

//go:embed templates/*.twiml.xml
var templatesFS embed.FS

// Template stems addressable through Load.
const (
	TemplateConnect               = "connect"
	TemplateDial                  = "dial"
	TemplateGather                = "gather"
	TemplateHangup                = "hangup"
	TemplateBirthdate             = "birthdate"
	TemplateBirthdateConfirmation = "birthdate-confirmation"
	TemplateBirthdateConfirmed    = "birthdate-confirmed"
	TemplateBirthdateRetry        = "birthdate-retry"
	TemplateBirthdateInvalidInput = "birthdate-invalid-input"
)

// Path is an element path expression evaluated against a template.
// The set is closed on purpose: templates are authored so each path
// matches exactly one element, and first match wins.
type Path string

const (
	PathConnectStream     Path = "./Connect/Stream"
	PathCallerParameter   Path = "./Parameter[@name='From']"
	PathStreamCallerParam Path = "./Connect/Stream/Parameter[@name='From']"
	PathDial              Path = "./Dial"
	PathGather            Path = "./Gather"
	PathRedirect          Path = "./Redirect"
	PathSay               Path = "./Say"
)

// TemplateFile maps a stem to its embedded file name.
func TemplateFile(stem string) string {
	return "templates/" + stem + ".twiml.xml"
}

// Exists reports whether an embedded template exists for the stem.
func Exists(stem string) bool {
	_, err := templatesFS.ReadFile(TemplateFile(stem))
	return err == nil
}

// Document wraps a parsed TwiML template.
type Document struct {
	doc *etree.Document
}

// Load parses an embedded template. A missing file, a parse failure and
// an empty document are all load failures.
func Load(stem string) (*Document, error) {
	name := TemplateFile(stem)
	data, err := templatesFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("TwiML template not found: %s", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse TwiML template %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to get root element from TwiML template: %s", name)
	}
	return &Document{doc: doc}, nil
}

// Find locates the element addressed by path, relative to the root.
func (d *Document) Find(path Path) (*etree.Element, error) {
	return FindIn(d.doc.Root(), path)
}

// FindIn locates the element addressed by path, relative to el.
func FindIn(el *etree.Element, path Path) (*etree.Element, error) {
	found := el.FindElement(string(path))
	if found == nil {
		return nil, fmt.Errorf("element %q not found in TwiML tree", string(path))
	}
	return found, nil
}

// SetAttr sets an attribute on the element in place. Values are taken
// as-is; callers format phone numbers and URLs before mutating.
func SetAttr(el *etree.Element, name, value string) {
	el.CreateAttr(name, value)
}

// SetText replaces the element's text in place.
func SetText(el *etree.Element, value string) {
	el.SetText(value)
}

// String serializes the document back to markup.
func (d *Document) String() (string, error) {
	out, err := d.doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize TwiML document: %w", err)
	}
	return out, nil
}
