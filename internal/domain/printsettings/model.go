package printsettings

import (
	"net/url"
	"time"

	"github.com/lims/lims/internal/platform/apperr"
)

type PageSize string

const (
	PageA4     PageSize = "A4"
	PageA5     PageSize = "A5"
	PageLetter PageSize = "LETTER"
)

const (
	minFontPt   = 8
	maxFontPt   = 16
	maxMarginMM = 50
	// maxBandMM bounds the letterhead header and footer bands.
	maxBandMM = 100
)

type Settings struct {
	OrgID          int64     `json:"orgid"`
	UseLetterhead  bool      `json:"useLetterhead"`
	HeaderImageURL string    `json:"headerImageUrl"`
	FooterImageURL string    `json:"footerImageUrl"`
	HeaderHeightMM int       `json:"headerHeightMm"`
	FooterHeightMM int       `json:"footerHeightMm"`
	MarginTopMM    int       `json:"marginTopMm"`
	MarginRightMM  int       `json:"marginRightMm"`
	MarginBottomMM int       `json:"marginBottomMm"`
	MarginLeftMM   int       `json:"marginLeftMm"`
	PageSize       PageSize  `json:"pageSize"`
	FontSizePt     int       `json:"fontSizePt"`
	ShowSignature  bool      `json:"showSignature"`
	SignatureName  string    `json:"signatureName"`
	SignatureTitle string    `json:"signatureTitle"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Defaults returns the settings used until an organization saves its own.
func Defaults(orgID int64) *Settings {
	return &Settings{
		OrgID:          orgID,
		MarginTopMM:    10,
		MarginRightMM:  10,
		MarginBottomMM: 10,
		MarginLeftMM:   10,
		PageSize:       PageA4,
		FontSizePt:     11,
	}
}

func (s *Settings) Validate() error {
	switch s.PageSize {
	case PageA4, PageA5, PageLetter:
	case "":
		s.PageSize = PageA4
	default:
		return apperr.Validation("pageSize must be one of [A4 A5 LETTER]")
	}
	if s.FontSizePt < minFontPt || s.FontSizePt > maxFontPt {
		return apperr.Validation("fontSizePt must be between %d and %d", minFontPt, maxFontPt)
	}
	margins := map[string]int{
		"marginTopMm":    s.MarginTopMM,
		"marginRightMm":  s.MarginRightMM,
		"marginBottomMm": s.MarginBottomMM,
		"marginLeftMm":   s.MarginLeftMM,
	}
	for name, v := range margins {
		if v < 0 || v > maxMarginMM {
			return apperr.Validation("%s must be between 0 and %d", name, maxMarginMM)
		}
	}
	if s.HeaderHeightMM < 0 || s.HeaderHeightMM > maxBandMM {
		return apperr.Validation("headerHeightMm must be between 0 and %d", maxBandMM)
	}
	if s.FooterHeightMM < 0 || s.FooterHeightMM > maxBandMM {
		return apperr.Validation("footerHeightMm must be between 0 and %d", maxBandMM)
	}
	for name, raw := range map[string]string{"headerImageUrl": s.HeaderImageURL, "footerImageUrl": s.FooterImageURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperr.Validation("%s must be an http(s) URL", name)
		}
	}
	if s.ShowSignature && s.SignatureName == "" {
		return apperr.Validation("signatureName is required when showSignature is set")
	}
	return nil
}
