package alerts

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/kjannette/stroomslim-backend/internal/models"
)

const supplierNotSet = "Not set"

type emailData struct {
	Greeting   string
	Price      string
	Threshold  string
	Saving     string
	Supplier   string
	PriceColor string
	AppURL     string
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"></head>
<body style="margin:0;padding:0;background:#060B14;font-family:'Segoe UI',Arial,sans-serif;">
  <div style="max-width:560px;margin:0 auto;padding:32px 16px;">
    <div style="text-align:center;margin-bottom:32px;">
      <div style="font-size:40px;margin-bottom:8px;">⚡</div>
      <div style="color:#00C896;font-size:24px;font-weight:800;">StroomSlim</div>
      <div style="color:#445;font-size:13px;margin-top:4px;">Belgium Real-Time Electricity Prices</div>
    </div>
    <div style="background:#0A1628;border:1px solid {{.PriceColor}}44;border-radius:20px;padding:28px;margin-bottom:24px;">
      <div style="color:#778;font-size:13px;margin-bottom:8px;">⚡ PRICE ALERT</div>
      <div style="color:#fff;font-size:22px;font-weight:700;margin-bottom:4px;">Hi {{.Greeting}}!</div>
      <div style="color:#aaa;font-size:15px;line-height:1.6;margin-bottom:20px;">
        The Belgian electricity price just dropped below your alert threshold of <strong style="color:#fff">{{.Threshold}}/MWh</strong>.
      </div>
      <div style="background:rgba(0,0,0,0.3);border-radius:14px;padding:20px;text-align:center;margin-bottom:20px;">
        <div style="color:#556;font-size:12px;margin-bottom:4px;">CURRENT PRICE</div>
        <div style="color:{{.PriceColor}};font-size:48px;font-weight:900;font-family:monospace;line-height:1;">{{.Price}}</div>
        <div style="color:#556;font-size:13px;margin-top:4px;">per MWh · right now</div>
      </div>
      <table width="100%" cellspacing="12" style="margin-bottom:20px;"><tr>
        <td style="background:rgba(0,200,150,0.1);border-radius:10px;padding:12px;text-align:center;">
          <div style="color:#556;font-size:11px;">YOUR THRESHOLD</div>
          <div style="color:#fff;font-size:18px;font-weight:700;">{{.Threshold}}</div>
        </td>
        <td style="background:rgba(0,200,150,0.1);border-radius:10px;padding:12px;text-align:center;">
          <div style="color:#556;font-size:11px;">SAVING VS THRESHOLD</div>
          <div style="color:#00C896;font-size:18px;font-weight:700;">{{.Saving}}</div>
        </td>
      </tr></table>
      <a href="{{.AppURL}}" style="display:block;background:#0D9488;color:#fff;text-decoration:none;text-align:center;padding:14px;border-radius:12px;font-weight:700;font-size:15px;">View Live Prices →</a>
    </div>
    <div style="background:rgba(255,255,255,0.03);border-radius:14px;padding:16px;margin-bottom:24px;">
      <div style="color:#0D9488;font-size:13px;font-weight:600;margin-bottom:6px;">💡 Now is a great time to:</div>
      <div style="color:#556;font-size:13px;line-height:1.8;">
        • Run your washing machine or dishwasher<br>
        • Charge your electric vehicle<br>
        • Heat your home or water boiler
      </div>
    </div>
    <div style="text-align:center;color:#334;font-size:11px;line-height:1.8;">
      <div>You're receiving this because you set a price alert in StroomSlim</div>
      <div>Supplier: {{.Supplier}} · Threshold: {{.Threshold}}/MWh</div>
      <div style="margin-top:8px;">
        <a href="{{.AppURL}}" style="color:#445;text-decoration:none;">Open App</a>
        &nbsp;·&nbsp;
        <a href="{{.AppURL}}" style="color:#445;text-decoration:none;">Manage Alerts</a>
      </div>
      <div style="margin-top:8px;color:#223;">Data: EPEX Spot via Energy-Charts.info · Not financial advice</div>
    </div>
  </div>
</body>
</html>`))

// FormatEUR renders a EUR/MWh value with one decimal, e.g. "€15.0".
func FormatEUR(v float64) string {
	return "€" + decimal.NewFromFloat(v).StringFixed(1)
}

// Subject is the alert email subject line. The price is rounded to whole
// euros; the threshold is printed as the user entered it.
func Subject(c models.AlertCandidate) string {
	return fmt.Sprintf("⚡ Price Alert: €%s/MWh, below your €%s threshold",
		decimal.NewFromFloat(c.CurrentPrice).StringFixed(0), decimal.NewFromFloat(c.Threshold).String())
}

// RenderAlertEmail builds the subject and HTML body for one candidate.
func RenderAlertEmail(c models.AlertCandidate, appURL string) (subject, html string, err error) {
	saving := decimal.NewFromFloat(c.Threshold).Sub(decimal.NewFromFloat(c.CurrentPrice))

	data := emailData{
		Greeting:   c.User.Name,
		Price:      FormatEUR(c.CurrentPrice),
		Threshold:  FormatEUR(c.Threshold),
		Saving:     "€" + saving.StringFixed(1),
		Supplier:   c.User.Preferences.Supplier,
		PriceColor: priceColor(c.CurrentPrice),
		AppURL:     appURL,
	}
	if data.Greeting == "" {
		data.Greeting = "there"
	}
	if data.Supplier == "" {
		data.Supplier = supplierNotSet
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render alert email: %w", err)
	}
	return Subject(c), buf.String(), nil
}

func priceColor(v float64) string {
	switch {
	case v < 0:
		return "#22C55E"
	case v < 50:
		return "#00C896"
	default:
		return "#F59E0B"
	}
}
