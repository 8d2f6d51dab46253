package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "caravan"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultMongoTransactions = true

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDefaultCapacity    = 50
	DefaultMaxCapacity        = 10000
	DefaultPhoneDefaultRegion = "ID"

	DefaultEventsEnabled  = false
	DefaultEventsTopic    = "caravan.registrations"
	DefaultEventsDLQTopic = "caravan.registrations.dlq"
)

type CapacityPolicy string

const (
	// CapacityPermissive accepts registrations past capacity and only flips
	// the availability flag.
	CapacityPermissive CapacityPolicy = "permissive"
	// CapacityStrict rejects registrations once a date is full.
	CapacityStrict CapacityPolicy = "strict"
)

const DefaultCapacityPolicy = CapacityPermissive
