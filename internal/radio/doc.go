// Package radio is the broadcast station: it owns the session, the receiver
// registry and the speaker list, and turns commands and speaker messages into
// state changes, notifications and relays.
//
// Every mutation of session, registry or config runs under one lock. Relays
// fan out outside the lock against a receiver snapshot.
package radio
