// Package messaging is a broker-agnostic publish/consume API with NATS and
// Kafka drivers. Business code depends on Messaging only, and the driver is
// chosen from configuration at start-up.
package messaging
