package extract

import (
	"log/slog"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/currency"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
)

// totalPattern builds a regex for one "label: $X.XX" phrasing. The label is
// matched case-insensitively; a currency code before the amount must be
// uppercase so ordinary words are not mistaken for codes.
func totalPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?i:` + label + `)\s*:?\s*(?:([$€£¥₹₩]|[A-Z]{3})\s*)?([0-9](?:[0-9.,]*[0-9])?)`)
}

// totalPatterns are tried in order, most specific phrasing first, so
// "grand total" is preferred over a bare "total" earlier in the body.
var totalPatterns = []*regexp.Regexp{
	totalPattern(`grand\s+total`),
	totalPattern(`amount\s+paid`),
	totalPattern(`total\s+charged`),
	totalPattern(`order\s+total`),
	totalPattern(`amount\s+due`),
	totalPattern(`total`),
	totalPattern(`payment\s+of`),
	totalPattern(`amount`),
}

// nonItemWords disqualify a line or table row from being a line item.
var nonItemWords = []string{"total", "subtotal", "tax", "shipping", "discount", "balance", "amount", "payment"}

var (
	textItemRe = regexp.MustCompile(`^(.{2,60}?)\s+([$€£¥₹₩]?)\s?([0-9](?:[0-9.,]*[0-9])?)\s*$`)
	quantityRe = regexp.MustCompile(`^(\d{1,3})\s*[xX]\s+`)
	cellPrice  = regexp.MustCompile(`^([$€£¥₹₩]?)\s*([0-9](?:[0-9.,]*[0-9])?)$`)
	cellCount  = regexp.MustCompile(`^\d{1,3}$`)
)

// fromBody mines the message body for receipt fields.
func (e *Extractor) fromBody(msg *model.CandidateMessage, providerType model.ProviderType) (*model.ExtractedReceipt, error) {
	body := msg.BodyText
	if body == "" && msg.BodyHTML != "" {
		body = provider.StripHTML(msg.BodyHTML)
	}

	merchant := merchantFromMessage(msg)
	totalRaw, totalAmount, totalValue := findTotal(body)
	if merchant == "" && totalValue == 0 {
		return nil, common.ErrNotExtractable
	}

	var items []model.LineItem
	var prices []string
	if msg.BodyHTML != "" {
		items, prices = itemsFromHTML(msg.BodyHTML)
	}
	if len(items) == 0 {
		items, prices = itemsFromText(body)
	}

	guess := currency.Detect(currency.Input{
		Merchant: merchant,
		Notes:    strings.TrimSpace(msg.Subject + " " + totalRaw),
		Total:    totalAmount,
		Prices:   prices,
	})

	receipt := &model.ExtractedReceipt{
		Date:           msg.Date,
		Merchant:       merchant,
		Currency:       guess.Code,
		Category:       categoryFor(merchant + " " + msg.Subject),
		SourceID:       msg.ID,
		SourceProvider: string(providerType),
		Source:         model.SourceEmail,
		Items:          items,
		Total:          totalValue,
	}

	slog.Debug("Extracted receipt from body",
		"message_id", msg.ID,
		"merchant", receipt.Merchant,
		"total", receipt.Total,
		"currency", receipt.Currency,
		"items", len(receipt.Items),
		"currency_evidence", guess.Evidence)
	return receipt, nil
}

// merchantFromMessage resolves the merchant name from the sender display
// name, then the sender domain, then a subject prefix.
func merchantFromMessage(msg *model.CandidateMessage) string {
	if msg.From != "" {
		if addr, err := mail.ParseAddress(msg.From); err == nil {
			if name := strings.TrimSpace(addr.Name); name != "" {
				return name
			}
			if at := strings.Index(addr.Address, "@"); at >= 0 {
				return domainLabel(addr.Address[at+1:])
			}
		} else if at := strings.Index(msg.From, "@"); at >= 0 {
			return domainLabel(strings.Trim(msg.From[at+1:], "<> "))
		}
	}
	return subjectPrefix(msg.Subject)
}

// domainLabel turns "mail.acme.com" into "Acme".
func domainLabel(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, prefix := range []string{"mail.", "mailer.", "email.", "e.", "notify.", "noreply."} {
		domain = strings.TrimPrefix(domain, prefix)
	}
	label, _, _ := strings.Cut(domain, ".")
	if label == "" {
		return ""
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// subjectPrefix takes the text before a subject separator, e.g.
// "Acme Store: your order" yields "Acme Store". Subjects without a
// separator yield nothing; guessing a merchant from an arbitrary subject
// produces garbage names.
func subjectPrefix(subject string) string {
	for _, sep := range []string{":", " - ", " – "} {
		if idx := strings.Index(subject, sep); idx > 0 {
			return strings.TrimSpace(subject[:idx])
		}
	}
	return ""
}

// findTotal runs the ordered total patterns against the body. It returns
// the matched phrase fragment (symbol or code plus amount, for currency
// evidence), the bare amount string, and the parsed value. No match yields
// a zero total.
func findTotal(body string) (raw, amount string, value float64) {
	for _, re := range totalPatterns {
		match := re.FindStringSubmatch(body)
		if match == nil {
			continue
		}
		token, amt := match[1], match[2]
		return strings.TrimSpace(token + " " + amt), amt, parseAmount(amt)
	}
	return "", "", 0
}

// parseAmount converts a written amount to a float, handling both
// comma-decimal ("1.234,56") and period-decimal ("1,234.56") styles.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		if lastDot == -1 && len(s)-lastComma-1 == 3 {
			// Commas followed by three-digit groups read as thousands
			// separators, e.g. "1,200".
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			i := strings.LastIndex(s, ",")
			s = strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
		}
	case lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// itemsFromText scans plain-text lines shaped like "name   $price".
func itemsFromText(body string) ([]model.LineItem, []string) {
	var items []model.LineItem
	var prices []string

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNonItemLine(line) {
			continue
		}
		match := textItemRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		symbol, amount := match[2], match[3]
		// A trailing bare integer is only a price when a symbol marks it,
		// otherwise order numbers and dates would read as prices.
		if symbol == "" && !strings.ContainsAny(amount, ".,") {
			continue
		}
		name := strings.TrimSpace(match[1])
		if !containsLetter(name) {
			continue
		}

		quantity := 1
		if qm := quantityRe.FindStringSubmatch(name); qm != nil {
			if n, err := strconv.Atoi(qm[1]); err == nil && n > 0 {
				quantity = n
				name = strings.TrimSpace(quantityRe.ReplaceAllString(name, ""))
			}
		}

		items = append(items, model.LineItem{Name: name, Price: parseAmount(amount), Quantity: quantity})
		prices = append(prices, amount)
	}
	return items, prices
}

// itemsFromHTML walks table rows looking for name/price pairs. Rows that
// yield an item are not descended into, so a nested table inside a matched
// row does not double-count.
func itemsFromHTML(htmlBody string) ([]model.LineItem, []string) {
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil, nil
	}

	var items []model.LineItem
	var prices []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if item, amount, ok := rowItem(rowCells(n)); ok {
				items = append(items, item)
				prices = append(prices, amount)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return items, prices
}

// rowCells collects the text of each td/th cell in a row.
func rowCells(tr *html.Node) []string {
	var cells []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			cells = append(cells, strings.TrimSpace(nodeText(n)))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return cells
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// rowItem interprets one row's cells as a line item: first cell is the
// name, the last price-shaped cell is the price, and a bare small integer
// cell in between is a quantity.
func rowItem(cells []string) (model.LineItem, string, bool) {
	if len(cells) < 2 {
		return model.LineItem{}, "", false
	}

	name := cells[0]
	if name == "" || !containsLetter(name) || isNonItemLine(name) {
		return model.LineItem{}, "", false
	}

	quantity := 1
	amount := ""
	for _, cell := range cells[1:] {
		if pm := cellPrice.FindStringSubmatch(cell); pm != nil {
			if cellCount.MatchString(cell) && amount == "" {
				// Prefer reading a bare small integer as a quantity, but
				// keep it as a price candidate if nothing better shows up.
				if n, err := strconv.Atoi(cell); err == nil && n > 0 && n < 100 {
					quantity = n
					continue
				}
			}
			amount = pm[2]
		}
	}
	if amount == "" {
		return model.LineItem{}, "", false
	}

	return model.LineItem{Name: name, Price: parseAmount(amount), Quantity: quantity}, amount, true
}

func isNonItemLine(line string) bool {
	lowered := strings.ToLower(line)
	for _, w := range nonItemWords {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
