package template

// Default is the stock outreach template used when the operator does not
// provide one.
var Default = Template{
	Subject: "Partnership Opportunity - Prestige Production",

	Text: `Hello {{.Name}},

I hope this message finds you well.

I'm reaching out from Prestige Production to explore potential partnership opportunities with {{.CompanyText}}.

We specialize in high-quality production services and believe there could be great synergy between our organizations. Our team has extensive experience in:

- Video Production & Post-Production
- Audio Engineering & Sound Design
- Creative Content Development
- Brand Strategy & Marketing

Would you be interested in a brief conversation to discuss how we might collaborate? I'd love to learn more about your current projects and explore potential synergies.

Best regards,
Dorian
Prestige Production

---
This email was sent as part of our client outreach program. If you'd prefer not to receive future communications, please reply with "UNSUBSCRIBE" in the subject line.
`,

	HTML: `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2c3e50;">Hello {{.Name}},</h2>

    <p>I hope this message finds you well.</p>

    <p>I'm reaching out from <strong>Prestige Production</strong> to explore potential partnership opportunities with <strong>{{.CompanyText}}</strong>.</p>

    <div style="background-color: #f8f9fa; padding: 15px; border-left: 4px solid #007bff; margin: 20px 0;">
      <p><strong>About Prestige Production:</strong></p>
      <p>We specialize in high-quality production services and believe there could be great synergy between our organizations.</p>
    </div>

    <p>Would you be interested in a brief conversation to discuss how we might collaborate?</p>

    {{if .TrackingClickURL}}<p><a href="{{.TrackingClickURL}}" style="color: #007bff;">Take a look at our recent work</a></p>{{end}}

    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee;">
      <p><strong>Best regards,</strong><br>
      Dorian<br>
      Prestige Production</p>
    </div>

    <p style="font-size: 12px; color: #666; margin-top: 20px;">
      This email was sent as part of our client outreach program.
    </p>
    {{if .TrackingPixelURL}}<img src="{{.TrackingPixelURL}}" width="1" height="1" alt="">{{end}}
  </div>
</body>
</html>
`,
}
