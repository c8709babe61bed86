package printsettings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

const resource = "print settings"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Get(ctx context.Context, orgID int64) (*Settings, error) {
	var s Settings
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT orgid, use_letterhead, header_image_url, footer_image_url, header_height_mm,
			footer_height_mm, margin_top_mm, margin_right_mm, margin_bottom_mm, margin_left_mm,
			page_size, font_size_pt, show_signature, signature_name, signature_title, updated_at
		FROM print_settings WHERE orgid = $1`, orgID).Scan(
		&s.OrgID, &s.UseLetterhead, &s.HeaderImageURL, &s.FooterImageURL, &s.HeaderHeightMM,
		&s.FooterHeightMM, &s.MarginTopMM, &s.MarginRightMM, &s.MarginBottomMM, &s.MarginLeftMM,
		&s.PageSize, &s.FontSizePt, &s.ShowSignature, &s.SignatureName, &s.SignatureTitle, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.MapError(err, resource)
	}
	return &s, nil
}

func (r *repoPG) Upsert(ctx context.Context, s *Settings) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO print_settings (orgid, use_letterhead, header_image_url, footer_image_url,
			header_height_mm, footer_height_mm, margin_top_mm, margin_right_mm, margin_bottom_mm,
			margin_left_mm, page_size, font_size_pt, show_signature, signature_name, signature_title,
			updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (orgid) DO UPDATE SET
			use_letterhead = EXCLUDED.use_letterhead,
			header_image_url = EXCLUDED.header_image_url,
			footer_image_url = EXCLUDED.footer_image_url,
			header_height_mm = EXCLUDED.header_height_mm,
			footer_height_mm = EXCLUDED.footer_height_mm,
			margin_top_mm = EXCLUDED.margin_top_mm,
			margin_right_mm = EXCLUDED.margin_right_mm,
			margin_bottom_mm = EXCLUDED.margin_bottom_mm,
			margin_left_mm = EXCLUDED.margin_left_mm,
			page_size = EXCLUDED.page_size,
			font_size_pt = EXCLUDED.font_size_pt,
			show_signature = EXCLUDED.show_signature,
			signature_name = EXCLUDED.signature_name,
			signature_title = EXCLUDED.signature_title,
			updated_at = EXCLUDED.updated_at`,
		s.OrgID, s.UseLetterhead, s.HeaderImageURL, s.FooterImageURL, s.HeaderHeightMM,
		s.FooterHeightMM, s.MarginTopMM, s.MarginRightMM, s.MarginBottomMM, s.MarginLeftMM,
		s.PageSize, s.FontSizePt, s.ShowSignature, s.SignatureName, s.SignatureTitle, s.UpdatedAt)
	return db.MapError(err, resource)
}
