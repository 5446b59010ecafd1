package pipeline

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"shipdoc/internal/util"
)

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Email is the part of a shipment message the pipeline reads.
type Email struct {
	Subject     string
	From        string
	Text        string
	Attachments []Attachment
}

func (e Email) AttachmentNames() []string {
	out := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		out = append(out, a.Name)
	}
	return out
}

func (e Email) PDFAttachments() []Attachment {
	var out []Attachment
	for _, a := range e.Attachments {
		if strings.EqualFold(a.ContentType, "application/pdf") || strings.HasSuffix(strings.ToLower(a.Name), ".pdf") {
			out = append(out, a)
		}
	}
	return out
}

// ParseEmail reads a raw RFC 822 message. HTML-only bodies are converted to
// line-preserving text.
func ParseEmail(raw []byte) (Email, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Email{}, err
	}

	text := env.Text
	if env.HTML != "" && !hasPlainPart(env.Root) {
		text = HTMLToText(env.HTML)
	}
	mail := Email{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    text,
	}

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, p := range parts {
		name := strings.TrimSpace(p.FileName)
		if name == "" {
			name = "attachment"
		}
		mail.Attachments = append(mail.Attachments, Attachment{Name: name, ContentType: p.ContentType, Data: p.Content})
	}
	return mail, nil
}

func hasPlainPart(p *enmime.Part) bool {
	for ; p != nil; p = p.NextSibling {
		if p.ContentType == "text/plain" && p.Disposition != "attachment" {
			return true
		}
		if hasPlainPart(p.FirstChild) {
			return true
		}
	}
	return false
}

const blockSelector = "p,div,tr,li,table,h1,h2,h3,h4,h5,h6"

// HTMLToText flattens an HTML body. Block elements and <br> end a line and
// table cells on one row are joined by a space.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.Join(strings.Fields(html), " ")))
	if err != nil {
		return html
	}
	doc.Find("script,style,head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td,th").AppendHtml(" ")
	doc.Find(blockSelector).AppendHtml("\n")

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = util.CollapseSpaces(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
