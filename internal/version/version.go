package version

// Version is the running system version. Snapshots record the version of the
// system that produced them, and the validator refuses to restore a snapshot
// produced by any other version.
const Version = "2.4.1"

// FormatVersion is the snapshot file format version.
const FormatVersion = "1.0"
