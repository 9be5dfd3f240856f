package strategy

import (
	"hash/fnv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/raaihank/fieldmask/internal/policy"
)

// Fake generator kinds.
const (
	GenName      = "name"
	GenFirstName = "first_name"
	GenLastName  = "last_name"
	GenEmail     = "email"
	GenPhone     = "phone"
	GenAddress   = "address"
	GenCity      = "city"
	GenState     = "state"
	GenZip       = "zip"
	GenCountry   = "country"
	GenCompany   = "company"
	GenSSN       = "ssn"
	GenDatePast  = "date_past"
	GenNumber    = "number"
	GenLorem     = "lorem"
)

// localeFormats carries the region-specific generation patterns. Generators
// without an entry here are locale-independent.
var localeFormats = map[string]struct {
	phone string
	zip   string
}{
	"en_US": {phone: "###-###-####", zip: "#####"},
	"en_GB": {phone: "07### ######", zip: "SW## #??"},
	"de_DE": {phone: "0## ########", zip: "#####"},
	"fr_FR": {phone: "0# ## ## ## ##", zip: "#####"},
}

const defaultLocale = "en_US"

// Fake generates a synthetic value of the configured kind. In deterministic
// mode the generator is reseeded from an integer hash of the original value,
// so the same input always yields the same fake output without ever being
// reversible to the original. The generator instance is local to the call;
// no shared random source is touched.
func (a *Applier) Fake(value string, strat *policy.MaskingStrategy) string {
	var faker *gofakeit.Faker
	if strat.Deterministic {
		faker = gofakeit.New(int64(seedFor(value)))
	} else {
		faker = gofakeit.New(0)
	}

	locale := strat.Locale
	if _, ok := localeFormats[locale]; !ok {
		locale = defaultLocale
	}

	switch strat.Generator {
	case GenName:
		return faker.Name()
	case GenFirstName:
		return faker.FirstName()
	case GenLastName:
		return faker.LastName()
	case GenEmail:
		return faker.Email()
	case GenPhone:
		return faker.Numerify(localeFormats[locale].phone)
	case GenAddress:
		return faker.Street()
	case GenCity:
		return faker.City()
	case GenState:
		return faker.State()
	case GenZip:
		// Zip patterns mix digits (#) and letters (?).
		return faker.Lexify(faker.Numerify(localeFormats[locale].zip))
	case GenCountry:
		return faker.Country()
	case GenCompany:
		return faker.Company()
	case GenSSN:
		return faker.Numerify("###-##-####")
	case GenDatePast:
		end := time.Now()
		start := end.AddDate(-30, 0, 0)
		return faker.DateRange(start, end).Format("2006-01-02")
	case GenNumber:
		return Stringify(faker.Number(0, 999999))
	case GenLorem:
		return faker.Sentence(8)
	default:
		return faker.Word()
	}
}

// seedFor derives a stable integer seed from the original value.
func seedFor(value string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(value))
	return h.Sum64()
}
