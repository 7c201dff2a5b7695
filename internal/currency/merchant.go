package currency

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// wordMention is an explicit currency name or code matched on word boundaries
// so that, e.g., "eur" does not fire inside "europe".
type wordMention struct {
	code string
	re   *regexp.Regexp
}

// locationRule maps a country or city mention to its currency. Word-boundary
// matching avoids false positives from substrings of unrelated words.
type locationRule struct {
	place string
	code  string
	re    *regexp.Regexp
}

// chainRule maps a known multinational or regional merchant chain to the
// currency of its dominant market.
type chainRule struct {
	name       string
	code       string
	confidence float64
}

var explicitSymbols = []struct {
	symbol string
	code   string
}{
	{"€", "EUR"}, {"£", "GBP"}, {"¥", "JPY"}, {"₹", "INR"},
	{"₩", "KRW"}, {"₺", "TRY"}, {"₽", "RUB"}, {"฿", "THB"}, {"$", "USD"},
}

var explicitWords []wordMention

var explicitWordData = []struct {
	word string
	code string
}{
	{"euros", "EUR"}, {"euro", "EUR"}, {"eur", "EUR"},
	{"pounds", "GBP"}, {"pound", "GBP"}, {"sterling", "GBP"}, {"gbp", "GBP"},
	{"dollars", "USD"}, {"dollar", "USD"}, {"usd", "USD"},
	{"yen", "JPY"}, {"jpy", "JPY"},
	{"rupees", "INR"}, {"rupee", "INR"}, {"inr", "INR"},
	{"won", "KRW"}, {"krw", "KRW"},
	{"francs", "CHF"}, {"franc", "CHF"}, {"chf", "CHF"},
	{"kronor", "SEK"}, {"krona", "SEK"}, {"sek", "SEK"},
	{"zloty", "PLN"}, {"pln", "PLN"},
	{"reais", "BRL"}, {"real", "BRL"}, {"brl", "BRL"},
	{"pesos", "MXN"}, {"peso", "MXN"}, {"mxn", "MXN"},
	{"cad", "CAD"}, {"aud", "AUD"}, {"nzd", "NZD"},
}

var locations []locationRule

var locationData = []struct {
	place string
	code  string
}{
	// Countries first, then major cities.
	{"united kingdom", "GBP"}, {"england", "GBP"}, {"scotland", "GBP"}, {"wales", "GBP"},
	{"france", "EUR"}, {"germany", "EUR"}, {"spain", "EUR"}, {"italy", "EUR"},
	{"netherlands", "EUR"}, {"ireland", "EUR"}, {"portugal", "EUR"}, {"austria", "EUR"},
	{"belgium", "EUR"}, {"finland", "EUR"}, {"greece", "EUR"},
	{"japan", "JPY"}, {"canada", "CAD"}, {"australia", "AUD"}, {"new zealand", "NZD"},
	{"switzerland", "CHF"}, {"sweden", "SEK"}, {"norway", "NOK"}, {"denmark", "DKK"},
	{"india", "INR"}, {"brazil", "BRL"}, {"mexico", "MXN"}, {"poland", "PLN"},
	{"czech republic", "CZK"}, {"hungary", "HUF"}, {"turkey", "TRY"},
	{"south korea", "KRW"}, {"korea", "KRW"}, {"thailand", "THB"}, {"singapore", "SGD"},
	{"hong kong", "HKD"}, {"south africa", "ZAR"},
	{"london", "GBP"}, {"manchester", "GBP"}, {"edinburgh", "GBP"}, {"birmingham", "GBP"},
	{"paris", "EUR"}, {"berlin", "EUR"}, {"munich", "EUR"}, {"madrid", "EUR"},
	{"barcelona", "EUR"}, {"rome", "EUR"}, {"milan", "EUR"}, {"amsterdam", "EUR"},
	{"dublin", "EUR"}, {"lisbon", "EUR"}, {"vienna", "EUR"}, {"brussels", "EUR"},
	{"tokyo", "JPY"}, {"osaka", "JPY"}, {"kyoto", "JPY"},
	{"toronto", "CAD"}, {"vancouver", "CAD"}, {"montreal", "CAD"},
	{"sydney", "AUD"}, {"melbourne", "AUD"}, {"brisbane", "AUD"},
	{"auckland", "NZD"}, {"wellington", "NZD"},
	{"zurich", "CHF"}, {"geneva", "CHF"}, {"stockholm", "SEK"}, {"oslo", "NOK"},
	{"copenhagen", "DKK"}, {"mumbai", "INR"}, {"delhi", "INR"}, {"bangalore", "INR"},
	{"seoul", "KRW"}, {"bangkok", "THB"}, {"warsaw", "PLN"}, {"prague", "CZK"},
	{"budapest", "HUF"}, {"istanbul", "TRY"}, {"sao paulo", "BRL"}, {"rio de janeiro", "BRL"},
	{"mexico city", "MXN"}, {"johannesburg", "ZAR"}, {"cape town", "ZAR"},
	{"new york", "USD"}, {"los angeles", "USD"}, {"chicago", "USD"}, {"seattle", "USD"},
	{"san francisco", "USD"}, {"boston", "USD"}, {"austin", "USD"},
}

// chains are matched as plain substrings; merchant strings already arrive in
// every imaginable casing and suffix form ("TESCO STORES 2041").
var chains = []chainRule{
	{"tesco", "GBP", 0.75}, {"sainsbury", "GBP", 0.75}, {"asda", "GBP", 0.75},
	{"waitrose", "GBP", 0.75}, {"marks & spencer", "GBP", 0.75}, {"boots", "GBP", 0.7},
	{"greggs", "GBP", 0.75}, {"argos", "GBP", 0.75},
	{"carrefour", "EUR", 0.75}, {"auchan", "EUR", 0.75}, {"mercadona", "EUR", 0.75},
	{"lidl", "EUR", 0.7}, {"aldi", "EUR", 0.7}, {"zara", "EUR", 0.7},
	{"decathlon", "EUR", 0.7}, {"rewe", "EUR", 0.75}, {"edeka", "EUR", 0.75},
	{"walmart", "USD", 0.75}, {"target", "USD", 0.75}, {"costco", "USD", 0.7},
	{"kroger", "USD", 0.75}, {"walgreens", "USD", 0.75}, {"safeway", "USD", 0.75},
	{"whole foods", "USD", 0.75}, {"trader joe", "USD", 0.75},
	{"uniqlo", "JPY", 0.7}, {"muji", "JPY", 0.7}, {"lawson", "JPY", 0.75},
	{"familymart", "JPY", 0.75}, {"don quijote", "JPY", 0.75},
	{"ikea", "SEK", 0.7}, {"h&m", "SEK", 0.7},
	{"loblaws", "CAD", 0.75}, {"tim hortons", "CAD", 0.75}, {"canadian tire", "CAD", 0.75},
	{"woolworths", "AUD", 0.75}, {"coles", "AUD", 0.75},
	{"migros", "CHF", 0.75},
	{"reliance", "INR", 0.7}, {"flipkart", "INR", 0.75},
	{"7-eleven", "USD", 0.7},
}

func init() {
	explicitWords = make([]wordMention, 0, len(explicitWordData))
	for _, w := range explicitWordData {
		explicitWords = append(explicitWords, wordMention{
			code: w.code,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(w.word) + `\b`),
		})
	}

	locations = make([]locationRule, 0, len(locationData))
	for _, l := range locationData {
		locations = append(locations, locationRule{
			place: l.place,
			code:  l.code,
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(l.place) + `\b`),
		})
	}
}

// InferFromMerchant guesses a currency from a merchant name and free-text
// notes. Signals are tested in strict priority order: explicit currency
// mentions, then country/city mentions, then known merchant chains. First
// match wins within each tier.
func InferFromMerchant(merchant, notes string) model.CurrencyGuess {
	text := strings.ToLower(strings.TrimSpace(merchant + " " + notes))
	if text == "" {
		return model.CurrencyGuess{
			Code:       DefaultCode,
			Confidence: 0.2,
			Evidence:   "no merchant or location evidence",
		}
	}

	for _, s := range explicitSymbols {
		if strings.Contains(text, s.symbol) {
			return model.CurrencyGuess{
				Code:       s.code,
				Confidence: 0.9,
				Evidence:   fmt.Sprintf("explicit currency symbol %q", s.symbol),
			}
		}
	}
	for _, w := range explicitWords {
		if w.re.MatchString(text) {
			return model.CurrencyGuess{
				Code:       w.code,
				Confidence: 0.9,
				Evidence:   "explicit currency mention",
			}
		}
	}

	for _, l := range locations {
		if l.re.MatchString(text) {
			return model.CurrencyGuess{
				Code:       l.code,
				Confidence: 0.8,
				Evidence:   fmt.Sprintf("location mention %q", l.place),
			}
		}
	}

	for _, c := range chains {
		if strings.Contains(text, c.name) {
			return model.CurrencyGuess{
				Code:       c.code,
				Confidence: c.confidence,
				Evidence:   fmt.Sprintf("known merchant chain %q", c.name),
			}
		}
	}

	return model.CurrencyGuess{
		Code:       DefaultCode,
		Confidence: 0.2,
		Evidence:   "no merchant or location evidence",
	}
}
