package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
)

func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.BadRequest("%s name is required", kind)
	}
	if len(name) > 200 {
		return "", apierr.BadRequest("%s name is too long", kind)
	}
	return name, nil
}

// cleanPhotoURL returns nil for an empty value, which clears the photo.
func cleanPhotoURL(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.BadRequest("photo url %q is not a valid http(s) URL", v)
	}
	return &v, nil
}

// first loads one row by id, mapping a missing row to NOT_FOUND.
func first(ctx context.Context, db *gorm.DB, dest interface{}, kind string, id uuid.UUID) error {
	err := db.WithContext(ctx).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierr.NotFound("%s not found", kind)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", kind, err)
	}
	return nil
}

// lookup is first without the NOT_FOUND mapping: a missing row yields
// (false, nil).
func lookup(ctx context.Context, db *gorm.DB, dest interface{}, id uuid.UUID) (bool, error) {
	err := db.WithContext(ctx).Take(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type reference struct {
	model  interface{}
	column string
	what   string
}

// ensureUnreferenced blocks deleting, or re-keying, rows other rows still
// point at.
func ensureUnreferenced(ctx context.Context, db *gorm.DB, kind string, id uuid.UUID, refs ...reference) error {
	for _, ref := range refs {
		var n int64
		if err := db.WithContext(ctx).Model(ref.model).Where(ref.column+" = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("count %s: %w", ref.what, err)
		}
		if n > 0 {
			return apierr.Conflict("%s is still used by %d %s", kind, n, ref.what)
		}
	}
	return nil
}

func ensureNameFree(ctx context.Context, db *gorm.DB, model interface{}, kind, name string, except uuid.UUID) error {
	var n int64
	q := db.WithContext(ctx).Model(model).Where("name = ?", name)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check %s name: %w", kind, err)
	}
	if n > 0 {
		return apierr.Conflict("%s %q already exists", kind, name)
	}
	return nil
}
