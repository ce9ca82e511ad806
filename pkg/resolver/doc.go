// Package resolver substitutes secret placeholders in header values.
//
// A placeholder is the literal prefix "secret://" followed by one or more
// characters from [A-Za-z0-9_-]. Keys are case-insensitive. Every placeholder
// in a value must resolve or the whole value fails with *SecretNotFoundError;
// nothing is partially substituted.
//
// The Authorization header gets one extra branch: a "Basic <base64>"
// credential whose decoded text is itself "secret://<key>" is replaced by
// "Basic <base64(secret)>".
//
//	table := resolver.MapTable{"apikey": "XYZ"}
//	v, err := resolver.Resolve("secret://apikey", table, false) // "XYZ"
package resolver
