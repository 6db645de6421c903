// Package broadcaster moves eviction events from the evictor to Kafka
// through the journal outbox: Submit never blocks, the background loop
// journals events and publishes pending records on every tick.
package broadcaster
