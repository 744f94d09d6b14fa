package proposals

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EmailRequest is the compose-email payload handed to the host: either
// rendered as a mailto: link in the archive view or queued for SMTP delivery.
type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ComposeEmail builds the proposal email from the record's embedded company
// snapshot. Missing contact data degrades to generic salutations, never to an
// error.
func ComposeEmail(p *Proposal) EmailRequest {
	contact := "Yetkili"
	to := ""
	if p.Company != nil {
		if p.Company.ContactPerson != "" {
			contact = p.Company.ContactPerson
		}
		to = p.Company.Email
	}

	ref := strings.TrimSpace(p.ProposalNo + " " + p.VersionLabel())
	amount := message.NewPrinter(language.English).Sprintf("%.2f", p.TotalUSD())

	body := fmt.Sprintf(
		"Sayın %s,\n\n"+
			"Ek'te %s numaralı teklifimizi bulabilirsiniz.\n\n"+
			"Teklif Özeti:\n"+
			"- Teklif No: %s\n"+
			"- Tarih: %s\n"+
			"- Tutar: $%s\n\n"+
			"Sorularınız için lütfen bizimle iletişime geçin.\n\n"+
			"Saygılarımızla,\n%s",
		contact, ref, ref, formatDateTR(p.Date), amount, p.Preparer,
	)

	return EmailRequest{
		To:      to,
		Subject: "Teklif: " + ref,
		Body:    body,
	}
}

// MailtoURL renders the request as a mailto: link for the archive UI.
func (e EmailRequest) MailtoURL() string {
	return "mailto:" + e.To +
		"?subject=" + escapeComponent(e.Subject) +
		"&body=" + escapeComponent(e.Body)
}

// escapeComponent percent-encodes like encodeURIComponent: spaces become %20,
// not '+', so mail clients decode the body correctly.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func formatDateTR(t time.Time) string {
	return t.Format("02.01.2006")
}
