package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/ttacon/libphonenumber"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

const (
	defaultSimilarityThreshold = 0.8

	exactDuplicateWarning   = "A retailer with this exact name already exists. This might be a duplicate entry."
	phoneDuplicateWarning   = "This phone number is already registered with another retailer."
	similarDuplicateWarning = "Found similar retailer names. Please verify this is not a duplicate."
)

// NormalizeName lowercases, strips everything but letters, digits and spaces,
// collapses whitespace and trims.
func NormalizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores two names in [0,1] as (maxLen - editDistance) / maxLen over normalized forms.
func Similarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return 1
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	if longest == 0 {
		return 1
	}
	return float64(longest-levenshtein.ComputeDistance(na, nb)) / float64(longest)
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectDuplicates classifies a candidate against existing retailers.
// Precedence is exact name, then phone, then similar name.
func DetectDuplicates(name, phone string, existing []models.Retailer, threshold float64) models.DuplicateReport {
	report := models.DuplicateReport{Matches: []models.DuplicateMatch{}}
	normalized := NormalizeName(name)
	if normalized == "" || len(existing) == 0 {
		return report
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultSimilarityThreshold
	}
	candidatePhone := digitsOnly(phone)

	var exact, byPhone, similar []models.DuplicateMatch
	for _, r := range existing {
		if NormalizeName(r.Name) == normalized {
			exact = append(exact, models.DuplicateMatch{Kind: models.DuplicateExact, Similarity: 1, Retailer: r})
		} else if score := Similarity(name, r.Name); score > threshold {
			similar = append(similar, models.DuplicateMatch{Kind: models.DuplicateSimilar, Similarity: score, Retailer: r})
		}
		if existingPhone := digitsOnly(r.Phone); candidatePhone != "" && existingPhone != "" && candidatePhone == existingPhone {
			byPhone = append(byPhone, models.DuplicateMatch{Kind: models.DuplicatePhone, Similarity: Similarity(name, r.Name), Retailer: r})
		}
	}

	switch {
	case len(exact) > 0:
		report.Kind, report.Warning, report.Matches = models.DuplicateExact, exactDuplicateWarning, exact
	case len(byPhone) > 0:
		report.Kind, report.Warning, report.Matches = models.DuplicatePhone, phoneDuplicateWarning, byPhone
	case len(similar) > 0:
		sort.SliceStable(similar, func(i, j int) bool { return similar[i].Similarity > similar[j].Similarity })
		report.Kind, report.Warning, report.Matches = models.DuplicateSimilar, similarDuplicateWarning, similar
	}
	return report
}

// searchScore reports whether retailer matches the free text query and how well.
// Every normalized query token must appear in the name, outlet name or code, or the
// query digits must appear in the phone; otherwise a name similarity at or above
// threshold still matches.
func searchScore(query string, r models.Retailer, threshold float64) (float64, bool) {
	normalized := NormalizeName(query)
	if normalized == "" {
		return 0, true
	}
	score := Similarity(query, r.Name)
	haystack := NormalizeName(strings.Join([]string{r.Name, r.OutletName, r.Code}, " "))
	all := true
	for _, token := range strings.Fields(normalized) {
		if !strings.Contains(haystack, token) {
			all = false
			break
		}
	}
	if all {
		return score, true
	}
	if digits := digitsOnly(query); len(digits) >= 4 && strings.Contains(digitsOnly(r.Phone), digits) {
		return score, true
	}
	return score, score >= threshold
}

// ValidatePhone checks the number is dialable in region.
func ValidatePhone(phone, region string) error {
	if region == "" {
		region = "IN"
	}
	parsed, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return fmt.Errorf("parse phone number: %w", err)
	}
	if !libphonenumber.IsValidNumber(parsed) {
		return fmt.Errorf("phone number is not valid for %s", region)
	}
	return nil
}
