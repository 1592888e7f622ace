// Package attendsdk is the Go client for the attendance service.
//
// A Client performs the unauthenticated calls (signup, login); both return
// a Session that holds the token pair. Session methods attach the access
// token, and on a 401 they refresh it through a single-flight coordinator:
// no matter how many requests fail at once, exactly one refresh call is
// made and every waiter is resolved with its outcome.
package attendsdk
