// Package store persists account rows with gorm.
//
// Postgres schemas are managed by embedded goose migrations; sqlite databases
// (development and tests) are created with AutoMigrate. Unique violations on
// username or email are reported as goAccount conflict errors so the engine
// can surface them to callers unchanged.
package store
