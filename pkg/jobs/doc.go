// Package jobs dispatches scoring jobs to workers, either through an
// in-process queue or a Kafka topic, and builds the arguments a worker
// needs to score a submission.
package jobs
