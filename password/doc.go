// Package password hashes and verifies account secrets.
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Accounts imported from the previous backend carry bcrypt hashes. Those are
// still verified, and [Hasher.NeedsUpgrade] reports them so the caller can
// re-hash after the next successful login.
//
// The package never stores secrets and never logs them.
package password
