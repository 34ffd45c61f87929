// Package mapper translates the feed's human-readable column names into
// canonical field identifiers. Known headers resolve through a fixed lookup
// table; unknown headers fall back to a deterministic transform so that new
// vendor columns surface under a stable derived name instead of being
// dropped. Placeholder columns the vendor ships structurally empty map to
// FieldIgnore and never reach the normalizer.
package mapper

import "strings"

// Field is the canonical identifier a raw feed column is mapped to.
type Field string

// Canonical fields consumed by the normalizer. FieldIgnore marks columns
// that are dropped during normalization.
const (
	FieldIgnore Field = ""

	FieldItemID         Field = "itemId"
	FieldShape          Field = "shape"
	FieldCarat          Field = "carat"
	FieldColor          Field = "color"
	FieldClarity        Field = "clarity"
	FieldCut            Field = "cut"
	FieldPolish         Field = "polish"
	FieldSymmetry       Field = "symmetry"
	FieldFluorescence   Field = "fluorescence"
	FieldLab            Field = "lab"
	FieldCertificateNum Field = "certificateNumber"
	FieldLength         Field = "length"
	FieldWidth          Field = "width"
	FieldDepth          Field = "depth"
	FieldDepthPercent   Field = "depthPercent"
	FieldTablePercent   Field = "tablePercent"
	FieldGirdle         Field = "girdle"
	FieldCulet          Field = "culet"
	FieldFancyColor     Field = "fancyColor"
	FieldFancyIntensity Field = "fancyIntensity"
	FieldFancyOvertone  Field = "fancyOvertone"
	FieldImageURL       Field = "imageUrl"
	FieldVideoURL       Field = "videoUrl"
	FieldCertificateURL Field = "certificateUrl"
	FieldCountry        Field = "country"
	FieldAvailability   Field = "availability"

	FieldPricePerCarat  Field = "pricePerCarat"
	FieldTotalPrice     Field = "totalPrice"
	FieldPercentOffList Field = "percentOffList"

	FieldPairStock         Field = "pairStock"
	FieldPairPrice         Field = "pairPrice"
	FieldPairPricePerCarat Field = "pairPricePerCarat"
)

// headerTable maps vendor header text to canonical fields. Keys are matched
// case-insensitively after trimming. Columns the vendor documents as
// structurally empty are pinned to FieldIgnore here so the fallback cannot
// resurrect them under a derived name.
var headerTable = map[string]Field{
	"item id #":          FieldItemID,
	"stock #":            FieldItemID,
	"supplier stock ref": FieldItemID,

	"shape":                  FieldShape,
	"cut":                    FieldShape,
	"carat":                  FieldCarat,
	"weight":                 FieldCarat,
	"color":                  FieldColor,
	"clarity":                FieldClarity,
	"cut grade":              FieldCut,
	"make (cut grade)":       FieldCut,
	"polish":                 FieldPolish,
	"symmetry":               FieldSymmetry,
	"fluorescence intensity": FieldFluorescence,
	"fluorescence":           FieldFluorescence,
	"lab":                    FieldLab,
	"grading lab":            FieldLab,
	"certificate number":     FieldCertificateNum,
	"certificate #":          FieldCertificateNum,

	"measurements length": FieldLength,
	"length":              FieldLength,
	"measurements width":  FieldWidth,
	"width":               FieldWidth,
	"measurements depth":  FieldDepth,
	"depth":               FieldDepth,
	"depth %":             FieldDepthPercent,
	"depth percent":       FieldDepthPercent,
	"table %":             FieldTablePercent,
	"table percent":       FieldTablePercent,
	"girdle":              FieldGirdle,
	"girdle thin":         FieldGirdle,
	"culet size":          FieldCulet,
	"culet":               FieldCulet,

	"fancy color":           FieldFancyColor,
	"fancy color intensity": FieldFancyIntensity,
	"fancy color overtone":  FieldFancyOvertone,

	"image url":       FieldImageURL,
	"image link":      FieldImageURL,
	"video url":       FieldVideoURL,
	"certificate url": FieldCertificateURL,
	"country":         FieldCountry,
	"availability":    FieldAvailability,

	"price per carat":  FieldPricePerCarat,
	"$/ct":             FieldPricePerCarat,
	"total price":      FieldTotalPrice,
	"asking price":     FieldTotalPrice,
	"percent off list": FieldPercentOffList,
	"% off list":       FieldPercentOffList,

	"pair stock #":         FieldPairStock,
	"pair":                 FieldPairStock,
	"pair total price":     FieldPairPrice,
	"pair price per carat": FieldPairPricePerCarat,

	// Structural placeholders in the vendor schema.
	"":             FieldIgnore,
	"-":            FieldIgnore,
	"empty field":  FieldIgnore,
	"empty column": FieldIgnore,
}

// Map resolves a header row into a positional field mapping. Index i of the
// result names the canonical field for column i, or FieldIgnore.
func Map(header []string) []Field {
	fields := make([]Field, len(header))
	for i, name := range header {
		fields[i] = Resolve(name)
	}
	return fields
}

// Resolve maps one header name to its canonical field: table lookup first,
// deterministic fallback otherwise.
func Resolve(name string) Field {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := headerTable[key]; ok {
		return f
	}
	return Fallback(name)
}

// Fallback derives a stable identifier for an unrecognized column: lowercase,
// strip non-alphanumerics, camel-case the remaining words. "Crown Angle %"
// becomes "crownAngle". The result is deterministic for a given header, at
// the cost of changing whenever the vendor renames the column cosmetically.
func Fallback(name string) Field {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	if len(words) == 0 {
		return FieldIgnore
	}

	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return Field(b.String())
}
