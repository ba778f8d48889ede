// Package relay implements pairing through a third-party relay broker.
//
// The companion device posts the credential to the broker and this client
// polls for it with GET {base}/poll. Sessions are addressed in one of three
// modes:
//
//   - public-key: a random token; the credential arrives as encryptedData,
//     RSA PKCS#1 v1.5 encrypted under an ephemeral key published in the
//     companion URL.
//   - code-hash: the hex SHA-256 of the device id and a short code; the
//     credential arrives in clear.
//   - plain-code: the short code itself; the credential arrives in clear.
//
// A 401 from the broker, or a response without a payload, means the
// credential is not there yet.
package relay
