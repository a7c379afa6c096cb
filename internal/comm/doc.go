// Package comm serves rendered documents to browser clients over
// socket.io and applies property patches they send back.
//
// The server pushes a full document snapshot on connection and listens
// for "patch" events carrying property updates. A small client wrapper
// is provided for tests and tooling that need to talk to the server
// from Go.
package comm
