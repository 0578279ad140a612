package templates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"

	"hookbot/internal/platform/models"
)

const (
	StageTemplate = "template"
	StageCompile  = "compile"
	StageConvert  = "convert"
	StageRender   = "render"
)

// FormatError carries the stage that failed and the underlying cause.
type FormatError struct {
	Stage string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

type TemplateGetter interface {
	Lookup(webhook *models.Webhook) (*pongo2.Template, error)
}

type Formatter struct {
	templates TemplateGetter
}

func NewFormatter(templates TemplateGetter) *Formatter {
	return &Formatter{templates: templates}
}

// Format renders the webhook's cached template against payload and escapes the
// result for the webhook's parse mode.
func (f *Formatter) Format(webhook *models.Webhook, payload []byte) (text string, err error) {
	defer recoverFormat(&err)

	tpl, err := f.templates.Lookup(webhook)
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			return "", &FormatError{Stage: StageCompile, Err: err}
		}
		return "", &FormatError{Stage: StageTemplate, Err: err}
	}
	return render(tpl, webhook, payload)
}

// Preview compiles webhook.Template on the fly instead of using the cache.
func (f *Formatter) Preview(webhook *models.Webhook, payload []byte) (text string, err error) {
	defer recoverFormat(&err)

	tpl, err := Compile(webhook.Template)
	if err != nil {
		return "", &FormatError{Stage: StageCompile, Err: err}
	}
	return render(tpl, webhook, payload)
}

func recoverFormat(err *error) {
	if r := recover(); r != nil {
		*err = &FormatError{Stage: StageRender, Err: fmt.Errorf("panic: %v", r)}
	}
}

func render(tpl *pongo2.Template, webhook *models.Webhook, payload []byte) (string, error) {
	var scope orderScope
	defer scope.release()

	ctx, err := toContext(payload, &scope)
	if err != nil {
		return "", &FormatError{Stage: StageConvert, Err: err}
	}

	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", &FormatError{Stage: StageRender, Err: err}
	}

	if strings.TrimSpace(out) == "" {
		out = fmt.Sprintf(`No data available to display for webhook "%s".`, webhook.Name)
	}

	// Templates are edited as single lines, so \n is written literally.
	out = strings.ReplaceAll(out, `\n`, "\n")

	return Escape(out, webhook.ParseMode), nil
}
