// Package events announces auth lifecycle events over MQTT.
//
// Sibling services subscribe to authsvc/events/# to react to
// registrations, token rotations, and revocations without polling the
// auth service. Publishing is optional and best effort: the service is
// fully functional with events disabled, and a failed publish never
// fails the request that triggered it.
package events
