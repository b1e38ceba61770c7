package readings

import "strings"

const (
	fingerprintPrefix = "FINGERPRINT_V3"
	missingPart       = "null"
)

// Fingerprint returns the stable identity of a reading built from machine id,
// timestamp, reading id and both component weights. A missing component is
// rendered as "null" so distinct events never collapse into one identity.
//
// Every component that compares fingerprints must obtain them from this
// function.
func Fingerprint(r Reading) string {
	parts := []string{
		fingerprintPrefix,
		fingerprintPart(r, "machine_id"),
		fingerprintPart(r, "timestamp"),
		fingerprintPart(r, "reading_id"),
		fingerprintPart(r, AdhesiveAliases...),
		fingerprintPart(r, ResinAliases...),
	}
	return strings.Join(parts, "_")
}

func fingerprintPart(r Reading, aliases ...string) string {
	v, ok := r.first(aliases)
	if !ok {
		return missingPart
	}
	s := rawText(v)
	if s == "" {
		return missingPart
	}
	return s
}
