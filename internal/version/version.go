package version

// Version is the current release of wall-weaver
const Version = "0.3.0"
