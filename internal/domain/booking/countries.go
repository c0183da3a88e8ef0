package booking

import (
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// UTCZone is returned for unknown or empty countries.
const UTCZone = "UTC"

var countryZones = map[string]string{
	// Middle East and Gulf
	"Saudi Arabia":         "Asia/Riyadh",
	"UAE":                  "Asia/Dubai",
	"United Arab Emirates": "Asia/Dubai",
	"Kuwait":               "Asia/Kuwait",
	"Qatar":                "Asia/Qatar",
	"Bahrain":              "Asia/Bahrain",
	"Oman":                 "Asia/Muscat",
	"Jordan":               "Asia/Amman",
	"Lebanon":              "Asia/Beirut",
	"Syria":                "Asia/Damascus",
	"Iraq":                 "Asia/Baghdad",
	"Iran":                 "Asia/Tehran",
	"Turkey":               "Europe/Istanbul",
	"Yemen":                "Asia/Aden",
	"Palestine":            "Asia/Gaza",

	// North Africa
	"Egypt":   "Africa/Cairo",
	"Libya":   "Africa/Tripoli",
	"Tunisia": "Africa/Tunis",
	"Algeria": "Africa/Algiers",
	"Morocco": "Africa/Casablanca",
	"Sudan":   "Africa/Khartoum",

	// Europe
	"United Kingdom": "Europe/London",
	"UK":             "Europe/London",
	"France":         "Europe/Paris",
	"Germany":        "Europe/Berlin",
	"Italy":          "Europe/Rome",
	"Spain":          "Europe/Madrid",
	"Netherlands":    "Europe/Amsterdam",
	"Belgium":        "Europe/Brussels",
	"Switzerland":    "Europe/Zurich",
	"Austria":        "Europe/Vienna",
	"Sweden":         "Europe/Stockholm",
	"Norway":         "Europe/Oslo",
	"Denmark":        "Europe/Copenhagen",
	"Finland":        "Europe/Helsinki",
	"Poland":         "Europe/Warsaw",
	"Czech Republic": "Europe/Prague",
	"Hungary":        "Europe/Budapest",
	"Romania":        "Europe/Bucharest",
	"Bulgaria":       "Europe/Sofia",
	"Greece":         "Europe/Athens",
	"Portugal":       "Europe/Lisbon",
	"Ireland":        "Europe/Dublin",
	"Croatia":        "Europe/Zagreb",
	"Serbia":         "Europe/Belgrade",
	"Slovenia":       "Europe/Ljubljana",
	"Slovakia":       "Europe/Bratislava",
	"Estonia":        "Europe/Tallinn",
	"Latvia":         "Europe/Riga",
	"Lithuania":      "Europe/Vilnius",
	"Ukraine":        "Europe/Kiev",
	"Belarus":        "Europe/Minsk",
	"Moldova":        "Europe/Chisinau",
	"Russia":         "Europe/Moscow",

	// North America
	"United States": "America/New_York",
	"USA":           "America/New_York",
	"US":            "America/New_York",
	"Canada":        "America/Toronto",
	"Mexico":        "America/Mexico_City",

	// South America
	"Brazil":    "America/Sao_Paulo",
	"Argentina": "America/Buenos_Aires",
	"Chile":     "America/Santiago",
	"Colombia":  "America/Bogota",
	"Peru":      "America/Lima",
	"Venezuela": "America/Caracas",
	"Ecuador":   "America/Guayaquil",
	"Bolivia":   "America/La_Paz",
	"Paraguay":  "America/Asuncion",
	"Uruguay":   "America/Montevideo",

	// Asia Pacific
	"China":        "Asia/Shanghai",
	"Japan":        "Asia/Tokyo",
	"South Korea":  "Asia/Seoul",
	"India":        "Asia/Kolkata",
	"Pakistan":     "Asia/Karachi",
	"Bangladesh":   "Asia/Dhaka",
	"Sri Lanka":    "Asia/Colombo",
	"Nepal":        "Asia/Kathmandu",
	"Thailand":     "Asia/Bangkok",
	"Vietnam":      "Asia/Ho_Chi_Minh",
	"Malaysia":     "Asia/Kuala_Lumpur",
	"Singapore":    "Asia/Singapore",
	"Indonesia":    "Asia/Jakarta",
	"Philippines":  "Asia/Manila",
	"Myanmar":      "Asia/Yangon",
	"Cambodia":     "Asia/Phnom_Penh",
	"Laos":         "Asia/Vientiane",
	"Mongolia":     "Asia/Ulaanbaatar",
	"Kazakhstan":   "Asia/Almaty",
	"Uzbekistan":   "Asia/Tashkent",
	"Turkmenistan": "Asia/Ashgabat",
	"Kyrgyzstan":   "Asia/Bishkek",
	"Tajikistan":   "Asia/Dushanbe",
	"Afghanistan":  "Asia/Kabul",

	// Oceania
	"Australia":   "Australia/Sydney",
	"New Zealand": "Pacific/Auckland",
	"Fiji":        "Pacific/Fiji",

	// Sub-Saharan Africa
	"South Africa": "Africa/Johannesburg",
	"Nigeria":      "Africa/Lagos",
	"Kenya":        "Africa/Nairobi",
	"Ethiopia":     "Africa/Addis_Ababa",
	"Ghana":        "Africa/Accra",
	"Tanzania":     "Africa/Dar_es_Salaam",
	"Uganda":       "Africa/Kampala",
	"Rwanda":       "Africa/Kigali",
	"Zambia":       "Africa/Lusaka",
	"Zimbabwe":     "Africa/Harare",
	"Botswana":     "Africa/Gaborone",
	"Namibia":      "Africa/Windhoek",
	"Madagascar":   "Indian/Antananarivo",
	"Mauritius":    "Indian/Mauritius",
	"Seychelles":   "Indian/Mahe",
}

var popularCountries = []string{
	"Saudi Arabia", "UAE", "Egypt", "Kuwait", "Qatar", "Jordan",
	"United States", "United Kingdom", "Canada", "Germany", "France", "Australia",
}

// Country pairs a supported country name with its IANA zone.
type Country struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// TimezoneFor resolves a country to its IANA zone: exact match first, then a
// case-insensitive match on the trimmed name. Unknown countries map to UTC.
func TimezoneFor(country string) string {
	if country == "" {
		return UTCZone
	}
	if tz, ok := countryZones[country]; ok {
		return tz
	}
	needle := strings.TrimSpace(country)
	for name, tz := range countryZones {
		if strings.EqualFold(name, needle) {
			return tz
		}
	}
	return UTCZone
}

// IsSupportedCountry reports whether the country resolves without falling back to UTC.
func IsSupportedCountry(country string) bool {
	return TimezoneFor(country) != UTCZone
}

// IsSupportedTimezone reports whether some country in the table uses tz.
func IsSupportedTimezone(tz string) bool {
	for _, v := range countryZones {
		if v == tz {
			return true
		}
	}
	return false
}

// Countries lists every supported country sorted by name.
func Countries() []Country {
	out := make([]Country, 0, len(countryZones))
	for name, tz := range countryZones {
		out = append(out, Country{Name: name, Timezone: tz})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SearchCountries returns countries whose name contains term, ignoring case.
// An empty term returns every country.
func SearchCountries(term string) []Country {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Countries()
	}
	var out []Country
	for _, c := range Countries() {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

// PopularCountries is the short list offered first in country pickers.
func PopularCountries() []Country {
	out := make([]Country, 0, len(popularCountries))
	for _, name := range popularCountries {
		out = append(out, Country{Name: name, Timezone: countryZones[name]})
	}
	return out
}

var (
	locMu    sync.RWMutex
	locCache = map[string]*time.Location{}
)

// location returns the zone for country along with its name.
func location(country string) (*time.Location, string) {
	tz := TimezoneFor(country)
	locMu.RLock()
	loc, ok := locCache[tz]
	locMu.RUnlock()
	if ok {
		return loc, tz
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, UTCZone
	}
	locMu.Lock()
	locCache[tz] = loc
	locMu.Unlock()
	return loc, tz
}
