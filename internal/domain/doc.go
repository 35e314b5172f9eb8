// Package domain contains the entities of the messaging platform: orgs,
// contacts and their URNs, groups, fields, messages, broadcasts, channels,
// campaigns, flows and webhooks. It also owns the value rules those
// entities share, such as URN parsing, name validity, custom field value
// rendering and run field normalization. It has no knowledge of storage or
// HTTP.
package domain
