package testutil

// SessionSecret is a signing key long enough for the session issuer
var SessionSecret = []byte("test-secret-test-secret-test-sec")
