package shared

import (
	"chalet/shared/cache"
	"chalet/shared/constant"
	"chalet/shared/dto"
	"chalet/shared/failure"
	"chalet/shared/timezone"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const cacheKeySeparator = ":"

func ConvertStringToBool(value string) *bool {
	if value == "" {
		return nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Error().Err(err).Msg("failed to convert string to bool")

		return nil
	}

	return &boolValue
}

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

// TransformFields converts the fields of a struct into a map of updated fields.
func TransformFields(data interface{}, username string) map[string]any {
	val := reflect.ValueOf(data)
	typ := reflect.TypeOf(data)

	updatedFields := make(map[string]any)

	for index := range val.NumField() {
		field := val.Field(index)
		if field.IsZero() {
			continue
		}

		fieldName := typ.Field(index).Tag.Get("db")
		if fieldName == "" {
			continue
		}

		updatedFields[fieldName] = field.Interface()
	}

	updatedFields[constant.FieldModifiedAt] = timezone.Now()
	updatedFields[constant.FieldModifiedBy] = username

	return updatedFields
}

func ConvertStringToInt64(value string) (int64, error) {
	res, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to convert %q to int64: %w", value, err)
	}

	return res, nil
}

// ParseID reads a positive numeric path parameter. Anything else is a validation failure on field.
func ParseID(field, value string) (int64, error) {
	id, err := ConvertStringToInt64(value)
	if err != nil || id < 1 {
		return 0, failure.Validation(field, field+" must be a positive integer") //nolint:wrapcheck
	}

	return id, nil
}

func FilterByID(id any, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// BuildCacheKey joins a prefix and its parts into a redis key, e.g. "booking:get:42".
func BuildCacheKey(prefix string, parts ...any) string {
	keys := make([]string, 0, len(parts)+1)
	keys = append(keys, prefix)

	for _, part := range parts {
		keys = append(keys, fmt.Sprint(part))
	}

	return strings.Join(keys, cacheKeySeparator)
}

// BuildCacheKeyWithQuery derives a stable key for a paged listing from its params and filters.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	where, args := filter.GetWhereClause()

	payload, err := json.Marshal(struct {
		Params dto.QueryParams `json:"params"`
		Where  string          `json:"where"`
		Args   map[string]any  `json:"args"`
	}{
		Params: params,
		Where:  where,
		Args:   args,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal cache key payload")

		return BuildCacheKey(prefix, params.Page, params.Limit, params.SortBy, params.SortDir)
	}

	sum := sha256.Sum256(payload)

	return BuildCacheKey(prefix, hex.EncodeToString(sum[:]))
}

// InvalidateCaches removes every key stored under prefix.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	if err := redisCache.Clear(ctx, prefix+constant.Asterix); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
	}
}

// CacheFill remembers the version seen before a read so its result is only cached when
// no write bumped the version in between.
type CacheFill struct {
	cache      cache.RedisCache
	versionKey string
	version    int64
	ok         bool
}

// BeginCacheFill must run before the read whose result will be cached.
func BeginCacheFill(ctx context.Context, redisCache cache.RedisCache, versionKey string) CacheFill {
	version, err := redisCache.Version(ctx, versionKey)
	if err != nil {
		log.Warn().Err(err).Str("versionKey", versionKey).Msg("cache version unavailable, result will not be cached")

		return CacheFill{}
	}

	return CacheFill{cache: redisCache, versionKey: versionKey, version: version, ok: true}
}

// Save stores value under key in the background.
func (f CacheFill) Save(ctx context.Context, key string, value any, ttl int) {
	if !f.ok {
		return
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if _, err := f.cache.SaveIfVersion(c, key, value, ttl, f.versionKey, f.version); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to save cache")
		}
	}()
}

// BumpCacheVersions drops every fill still in flight for versionKeys. Writers call it after
// their commit and before returning.
func BumpCacheVersions(ctx context.Context, redisCache cache.RedisCache, versionKeys ...string) {
	for _, key := range versionKeys {
		if err := redisCache.Bump(context.WithoutCancel(ctx), key); err != nil {
			log.Error().Err(err).Str("versionKey", key).Msg("failed to bump cache version")
		}
	}
}

// Actor returns the authenticated user id and role placed on ctx by the auth middleware.
func Actor(ctx context.Context) (userID, role string) {
	userID, _ = ctx.Value(constant.ContextKeyUserID).(string)
	role, _ = ctx.Value(constant.ContextKeyUserRole).(string)

	return userID, role
}

func IsAdminRole(role string) bool {
	return role == constant.RoleAdmin || role == constant.RoleSuperAdmin
}
