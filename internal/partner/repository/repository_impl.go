package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerbot/internal/partner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Partner, error) {
	var partners []domain.Partner
	err := db.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *repo) FindByStatus(ctx context.Context, db *gorm.DB, status domain.Status) ([]domain.Partner, error) {
	var partners []domain.Partner
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at asc, id asc").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Partner, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}

	lookups := []struct {
		column string
		value  any
	}{
		{column: "name", value: ref},
		{column: "slug", value: strings.ToLower(ref)},
	}
	if id, err := snowflake.ParseString(ref); err == nil {
		lookups = append(lookups, struct {
			column string
			value  any
		}{column: "id", value: id})
	}

	for _, lookup := range lookups {
		var partners []domain.Partner
		err := db.WithContext(ctx).
			Where(lookup.column+" = ?", lookup.value).
			Limit(1).
			Find(&partners).Error
		if err != nil {
			return nil, err
		}
		if len(partners) > 0 {
			return &partners[0], nil
		}
	}
	return nil, nil
}

func (r *repo) ExistsByName(ctx context.Context, db *gorm.DB, name string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Partner{}).
		Where("name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Create(partner).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).
		Model(&domain.Partner{}).
		Where("id = ?", partner.ID).
		Select("status", "member_count", "exempt_from_requirements", "warning_issued_at", "last_audit_at", "updated_at").
		Updates(map[string]any{
			"status":                   partner.Status,
			"member_count":             partner.MemberCount,
			"exempt_from_requirements": partner.ExemptFromRequirements,
			"warning_issued_at":        partner.WarningIssuedAt,
			"last_audit_at":            partner.LastAuditAt,
			"updated_at":               partner.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Partner{}).Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Partner{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
