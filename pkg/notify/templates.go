package notify

import (
	"bytes"
	"html/template"
)

// TemplateManager holds the parsed transactional email templates.
type TemplateManager struct {
	WithdrawalTmpl *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	withdrawalTmpl, err := template.New("withdrawal").Parse(withdrawalReceiptTemplate)
	if err != nil {
		return nil, err
	}
	return &TemplateManager{WithdrawalTmpl: withdrawalTmpl}, nil
}

// WithdrawalData is the dynamic content of a withdrawal receipt.
type WithdrawalData struct {
	Name    string
	Amount  string
	Balance string
}

// GenerateWithdrawalReceiptHTML executes the withdrawal receipt template.
func (tm *TemplateManager) GenerateWithdrawalReceiptHTML(data WithdrawalData) (string, error) {
	var body bytes.Buffer
	if err := tm.WithdrawalTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

const withdrawalReceiptTemplate = `
<html>
  <body style="font-family: sans-serif; color: #333;">
    <h2>Withdrawal confirmed</h2>
    <p>Hi {{.Name}},</p>
    <p>Your withdrawal of <strong>{{.Amount}}</strong> has been recorded.</p>
    <p>Remaining wallet balance: <strong>{{.Balance}}</strong>.</p>
    <p>— The Livraison team</p>
  </body>
</html>`
