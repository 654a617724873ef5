package libs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"storefront/config"
	"storefront/models"
	"storefront/services"
)

var _ services.OrderNotifier = (*OrderMailer)(nil)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// OrderMailer emails an order confirmation after checkout.
type OrderMailer struct {
	dialer sender
	from   string
}

func NewOrderMailer(cfg config.SMTPConfig) (*OrderMailer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("SMTP configuration missing")
	}
	return &OrderMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (m *OrderMailer) Name() string {
	return "email"
}

// NotifyCheckout does nothing when the receipt has no address.
func (m *OrderMailer) NotifyCheckout(ctx context.Context, receipt services.CheckoutReceipt) error {
	if receipt.Email == "" || len(receipt.Orders) == 0 {
		return nil
	}
	msg, err := m.confirmationMessage(receipt)
	if err != nil {
		return err
	}

	// gomail has no context support; give up early if the caller already has.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *OrderMailer) confirmationMessage(receipt services.CheckoutReceipt) (*gomail.Message, error) {
	body, err := renderConfirmation(receipt.Orders)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", receipt.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Order Confirmation #%d", receipt.Orders[0].OrderID))
	msg.SetBody("text/html", body)
	return msg, nil
}

func renderConfirmation(orders []models.OrderSummary) (string, error) {
	total := models.MustMoney("0")
	for _, o := range orders {
		total = models.NewMoney(total.Add(o.Amount.Decimal))
	}

	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, struct {
		Orders []models.OrderSummary
		Total  models.Money
	}{orders, total}); err != nil {
		return "", fmt.Errorf("render confirmation email: %w", err)
	}
	return body.String(), nil
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 10px;">
        <h2 style="color: #333;">Order Confirmation</h2>
        <p>Thank you for your order!</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><th align="left">Order</th><th align="left">Product</th><th align="right">Qty</th><th align="right">Amount</th><th align="left">Payment</th></tr>
            {{range .Orders}}<tr><td>#{{.OrderID}}</td><td>{{.ProductName}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.Amount}}</td><td>{{.PaymentID}}</td></tr>
            {{end}}
        </table>
        <p><strong>Total:</strong> {{.Total}}</p>
        <p style="color: #666; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`))
