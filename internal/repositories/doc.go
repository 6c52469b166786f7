// Package repositories implements SQLite persistence for local client state.
//
// The order server owns all order data; what lives here is what the client
// itself needs to remember between runs:
//   - [PreferenceRepository] : name/value settings such as the chime toggle ([SoundEnabledKey])
//   - [PrintJobRepository] : history of label print attempts, used as a [printing.Recorder]
//
// Tables are created by the embedded migrations in the shared package.
package repositories
