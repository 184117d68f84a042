package amfi

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"wealthlens/internal/models"
)

var (
	isinPattern       = regexp.MustCompile(`^IN[A-Z0-9]{9}[0-9]$`)
	schemeCodePattern = regexp.MustCompile(`^[0-9]{1,10}$`)
)

// ParseNAVAll parses AMFI's NAVAll.txt. The file interleaves section headers
// ("Open Ended Schemes(Equity Scheme - Large Cap Fund)"), fund house lines and
// scheme rows of the form
//
//	Scheme Code;ISIN Div Payout/ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date
//
// The second column is the payout ISIN for IDCW variants and the growth ISIN
// otherwise. Later rows for the same scheme code replace earlier ones.
func ParseNAVAll(r io.Reader, asOf time.Time) ([]models.SchemeMaster, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		fundHouse string
		schemes   []models.SchemeMaster
		index     = make(map[string]int)
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.Contains(line, ";") {
			if !isSectionHeader(line) {
				fundHouse = line
			}
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) < 4 {
			continue
		}
		code := strings.TrimSpace(fields[0])
		if !schemeCodePattern.MatchString(code) {
			continue
		}
		name := strings.Join(strings.Fields(fields[3]), " ")
		if name == "" {
			continue
		}

		s := models.SchemeMaster{
			SchemeCode:  code,
			SchemeName:  name,
			FundHouse:   fundHouse,
			Status:      models.SchemeStatusActive,
			LastUpdated: asOf,
		}
		primary := cleanISIN(fields[1])
		if isIDCWVariant(name) {
			s.ISINDivPayout = primary
		} else {
			s.ISINGrowth = primary
		}
		s.ISINDivReinvestment = cleanISIN(fields[2])

		if i, ok := index[code]; ok {
			schemes[i] = s
			continue
		}
		index[code] = len(schemes)
		schemes = append(schemes, s)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading scheme master: %w", err)
	}
	return schemes, nil
}

// ValidISIN reports whether s is a well-formed Indian ISIN.
func ValidISIN(s string) bool {
	return isinPattern.MatchString(s)
}

func cleanISIN(raw string) *string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !ValidISIN(s) {
		return nil
	}
	return &s
}

func isSectionHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "schemes(") || strings.Contains(lower, "schemes (") ||
		strings.HasPrefix(lower, "open ended") || strings.HasPrefix(lower, "close ended") ||
		strings.HasPrefix(lower, "interval fund")
}

func isIDCWVariant(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "idcw") || strings.Contains(lower, "dividend")
}
