package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/shopspring/decimal"
)

const currency = "€"

const itemRow = `<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`

const layout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #2f9e44 0%%, #237032 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">%s</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Product</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Unit price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #2f9e44; margin-left: 10px;">%s</span>
		</div>
		%s
		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This message was sent automatically. Contact support if you have any questions.
		</p>
	</div>
</body>
</html>`

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(orderNumber string, total decimal.Decimal, items []model.OrderItem) string {
	return fmt.Sprintf(layout,
		"Thank you for your order",
		"We have received your order and will start preparing it shortly.",
		"Order number",
		html.EscapeString(orderNumber),
		itemRows(items, func(item model.OrderItem) int { return item.OrderedQty }),
		formatMoney(total),
		"",
	)
}

// BuildInvoiceBody lists the delivered quantities the invoice was issued for.
func BuildInvoiceBody(inv model.Invoice) string {
	due := ""
	if inv.DueDate != nil {
		due = fmt.Sprintf(`<p style="font-size: 14px;">Payment due by <strong>%s</strong>.</p>`, inv.DueDate.Format("2 Jan 2006"))
	}
	return fmt.Sprintf(layout,
		"Your invoice",
		fmt.Sprintf("Order %s has been delivered. Your invoice is below.", html.EscapeString(inv.Payload.OrderNumber)),
		"Invoice number",
		html.EscapeString(inv.InvoiceNumber),
		itemRows(inv.Payload.Items, model.OrderItem.EffectiveQty),
		formatMoney(inv.TotalAmount),
		due,
	)
}

func itemRows(items []model.OrderItem, qty func(model.OrderItem) int) string {
	var rows strings.Builder
	for _, item := range items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		n := qty(item)
		rows.WriteString(fmt.Sprintf(itemRow,
			html.EscapeString(name),
			n,
			formatMoney(item.UnitPrice),
			formatMoney(item.UnitPrice.Mul(decimal.NewFromInt(int64(n)))),
		))
	}
	return rows.String()
}

// formatMoney renders an amount with two decimals and comma separators
func formatMoney(d decimal.Decimal) string {
	str := model.RoundMoney(d).StringFixed(2)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	whole, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(whole[i : i+3])
	}
	return sign + currency + result.String() + "." + frac
}
