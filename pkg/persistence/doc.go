// Package persistence round-trips the DUA manager's stable state: the
// chosen Interface Identifier and the Duplicate Address Detection counter.
//
// The record must survive restarts so a device resumes with the same
// address and does not forget a prior collision. Absence of the record on
// first boot is not an error; derivation then starts from scratch.
//
// The storage mechanism itself is a collaborator: the manager depends only
// on the SettingsStore contract. FileStore persists to a JSON file;
// MemStore backs tests.
package persistence
