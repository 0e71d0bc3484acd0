package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/models"
	cache "github.com/patrickmn/go-cache"
)

// ErrConfigurationUnavailable wraps persistence failures so callers can
// distinguish "the store is broken" from "the key is absent". Absence is
// never an error on Get; it resolves to the caller's default.
var ErrConfigurationUnavailable = errors.New("configuration unavailable")

const configCacheTTL = 5 * time.Minute

// ConfigurationService is the single source of truth for runtime-tunable
// settings. Reads go through a process-local cache with a fixed TTL; any
// successful write flushes the whole cache rather than invalidating
// individual keys. The cache is not shared across replicas, so siblings may
// serve stale values for up to one TTL after a write.
type ConfigurationService struct {
	db    *database.DB
	cache *cache.Cache
}

// NewConfigurationService creates a configuration service with the default
// read cache.
func NewConfigurationService(db *database.DB) *ConfigurationService {
	return NewConfigurationServiceWithCache(db, cache.New(configCacheTTL, 10*time.Minute))
}

// NewConfigurationServiceWithCache creates a configuration service with an
// injected cache. Pass nil to disable caching entirely (useful in tests that
// assert on persistence behavior).
func NewConfigurationServiceWithCache(db *database.DB, c *cache.Cache) *ConfigurationService {
	return &ConfigurationService{db: db, cache: c}
}

// SetOptions carries the optional attributes of a configuration write.
type SetOptions struct {
	Description string
	ValueType   models.ValueType // models.ValueTypeAuto detects from the value's shape
	ChangedBy   string
	IsSensitive bool // applied on create only; an update never flips sensitivity
}

// Get returns the value for key, or defaultValue if no active entry exists.
// If category is non-empty it acts as an additional filter; a mismatch
// resolves to the default. Absence is a normal outcome, not an error.
func (s *ConfigurationService) Get(ctx context.Context, key, category string, defaultValue interface{}) (interface{}, error) {
	cacheKey := key + "\x00" + category
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey); found {
			return cached, nil
		}
	}

	query := "SELECT value, value_type FROM configurations WHERE `key` = ? AND is_active = 1"
	args := []interface{}{key}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}

	var raw string
	var valueType string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw, &valueType)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query key %q: %v", ErrConfigurationUnavailable, key, err)
	}

	value, err := models.DecodeValue(raw, models.ValueType(valueType))
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt value for key %q: %v", ErrConfigurationUnavailable, key, err)
	}

	if m := GetMetrics(); m != nil {
		m.ConfigReads.Inc()
	}
	if s.cache != nil {
		s.cache.Set(cacheKey, value, cache.DefaultExpiration)
	}

	return value, nil
}

// GetConfiguration returns the full active entry for key, or nil if absent.
// Used by the API layer, which needs metadata and sensitivity flags rather
// than just the value.
func (s *ConfigurationService) GetConfiguration(ctx context.Context, key, category string) (*models.Configuration, error) {
	query := `
		SELECT id, ` + "`key`" + `, category, description, display_name, help_text,
		       value, value_type, previous_value, is_sensitive, is_readonly,
		       is_system, is_active, changed_by, change_reason, created_at, updated_at
		FROM configurations
		WHERE ` + "`key`" + ` = ? AND is_active = 1`
	args := []interface{}{key}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}

	config, err := s.scanConfiguration(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query key %q: %v", ErrConfigurationUnavailable, key, err)
	}
	return config, nil
}

// Set creates or updates a configuration entry. On update the outgoing value
// is archived into previous_value for one-step rollback. Any successful
// write flushes the read cache.
//
// Concurrent writers on the same key are serialized by the database; there
// is no version check, so the last writer wins and previous_value can be
// stale under interleaving. Accepted: configuration changes are
// operator-driven and low-contention.
func (s *ConfigurationService) Set(ctx context.Context, key string, value interface{}, category string, opts SetOptions) error {
	valueType := opts.ValueType
	if valueType == "" || valueType == models.ValueTypeAuto {
		valueType = models.DetectValueType(value)
	}

	encoded, err := models.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
	}

	changedBy := opts.ChangedBy
	if changedBy == "" {
		changedBy = "api"
	}

	now := time.Now().UTC()

	// Match by key alone: keys are globally unique across categories, and a
	// soft-deleted row keeps its key, so an update targets whatever row
	// holds the key rather than inserting a duplicate.
	var id int
	var currentValue string
	err = s.db.QueryRowContext(ctx,
		"SELECT id, value FROM configurations WHERE `key` = ?", key,
	).Scan(&id, &currentValue)

	switch {
	case err == sql.ErrNoRows:
		description := opts.Description
		if description == "" {
			description = fmt.Sprintf("Configuration for %s", key)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO configurations
				(`+"`key`"+`, category, description, value, value_type, is_sensitive,
				 is_active, changed_by, change_reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
			key, category, description, encoded, string(valueType), opts.IsSensitive,
			changedBy, fmt.Sprintf("Created via API by %s", changedBy), now, now,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to create key %q: %v", ErrConfigurationUnavailable, key, err)
		}
	case err != nil:
		return fmt.Errorf("%w: failed to query key %q: %v", ErrConfigurationUnavailable, key, err)
	default:
		_, err = s.db.ExecContext(ctx, `
			UPDATE configurations
			SET previous_value = ?, value = ?, value_type = ?, changed_by = ?,
			    change_reason = ?, updated_at = ?
			WHERE id = ?`,
			currentValue, encoded, string(valueType), changedBy,
			fmt.Sprintf("Updated via API by %s", changedBy), now, id,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to update key %q: %v", ErrConfigurationUnavailable, key, err)
		}
	}

	if m := GetMetrics(); m != nil {
		m.ConfigWrites.Inc()
	}
	s.flushCache()
	return nil
}

// GetCategory returns all active entries in a category as a key-to-value
// map, for bulk consumption by other components.
func (s *ConfigurationService) GetCategory(ctx context.Context, category string) (map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT `key`, value, value_type FROM configurations WHERE category = ? AND is_active = 1",
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query category %q: %v", ErrConfigurationUnavailable, category, err)
	}
	defer rows.Close()

	result := make(map[string]interface{})
	for rows.Next() {
		var key, raw, valueType string
		if err := rows.Scan(&key, &raw, &valueType); err != nil {
			return nil, fmt.Errorf("%w: failed to scan configuration: %v", ErrConfigurationUnavailable, err)
		}
		value, err := models.DecodeValue(raw, models.ValueType(valueType))
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt value for key %q: %v", ErrConfigurationUnavailable, key, err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
	}

	return result, nil
}

// GetCategoryConfigurations returns the full active entries in a category,
// for API responses that need metadata and redaction.
func (s *ConfigurationService) GetCategoryConfigurations(ctx context.Context, category string) ([]*models.Configuration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, `+"`key`"+`, category, description, display_name, help_text,
		       value, value_type, previous_value, is_sensitive, is_readonly,
		       is_system, is_active, changed_by, change_reason, created_at, updated_at
		FROM configurations
		WHERE category = ? AND is_active = 1`,
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query category %q: %v", ErrConfigurationUnavailable, category, err)
	}
	defer rows.Close()

	var configs []*models.Configuration
	for rows.Next() {
		config, err := s.scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan configuration: %v", ErrConfigurationUnavailable, err)
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
	}

	return configs, nil
}

// ListCategories returns every distinct category present in storage,
// including categories whose entries are all inactive. Category discovery
// is independent of entry activity state.
func (s *ConfigurationService) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT category FROM configurations")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list categories: %v", ErrConfigurationUnavailable, err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("%w: failed to scan category: %v", ErrConfigurationUnavailable, err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
	}

	return categories, nil
}

// Delete soft-deletes the entry matching key. Returns false if no entry
// matches. The row stays in storage with is_active = 0; there is no
// physical removal path.
func (s *ConfigurationService) Delete(ctx context.Context, key string) (bool, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE configurations SET is_active = 0, updated_at = ? WHERE `key` = ?",
		now, key,
	)
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete key %q: %v", ErrConfigurationUnavailable, key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
	}
	if affected == 0 {
		return false, nil
	}

	if m := GetMetrics(); m != nil {
		m.ConfigWrites.Inc()
	}
	s.flushCache()
	return true, nil
}

// flushCache drops the entire read cache. Coarse by design: correctness
// over cache efficiency.
func (s *ConfigurationService) flushCache() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *ConfigurationService) scanConfiguration(row rowScanner) (*models.Configuration, error) {
	var c models.Configuration
	var description, displayName, helpText, changedBy, changeReason, previousValue sql.NullString
	var raw, valueType string

	err := row.Scan(
		&c.ID, &c.Key, &c.Category, &description, &displayName, &helpText,
		&raw, &valueType, &previousValue, &c.IsSensitive, &c.IsReadonly,
		&c.IsSystem, &c.IsActive, &changedBy, &changeReason, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Description = description.String
	c.DisplayName = displayName.String
	c.HelpText = helpText.String
	c.ChangedBy = changedBy.String
	c.ChangeReason = changeReason.String
	c.ValueType = models.ValueType(valueType)

	c.Value, err = models.DecodeValue(raw, c.ValueType)
	if err != nil {
		return nil, err
	}
	if previousValue.Valid && previousValue.String != "" {
		// previous_value keeps the type of the write that archived it
		prev, err := models.DecodeValue(previousValue.String, models.ValueTypeJSON)
		if err != nil {
			return nil, err
		}
		c.PreviousValue = prev
	}

	return &c, nil
}

// InitializeDefaults seeds the catalog of known settings. Each entry is
// seeded only if its key has no active row, so the call is idempotent and
// never overwrites operator changes.
func (s *ConfigurationService) InitializeDefaults(ctx context.Context) error {
	for _, d := range defaultConfigurations {
		existing, err := s.Get(ctx, d.key, d.category, nil)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		err = s.Set(ctx, d.key, d.value, d.category, SetOptions{
			Description: d.description,
			ValueType:   d.valueType,
			ChangedBy:   "system_init",
			IsSensitive: d.isSensitive,
		})
		if err != nil {
			return err
		}
		log.Printf("   ✅ Seeded configuration %s (%s)", d.key, d.category)
	}

	return nil
}
