// Package credentials implements password hashing and verification plus
// generation of opaque activation and reset codes.
package credentials
