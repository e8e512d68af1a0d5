// dir-archiver keeps dated archives of directories and rotates them.
//
// Each configured target is archived once per day into
// <name>_backup_<YYYY-MM-DD>.zip (or .tar.zst). Archives older than the
// retention window are deleted unless they are the first of a month or a
// year, and a target with a dedicated backup root is kept under its size
// budget by removing the oldest files.
//
// Usage:
//
//	# Run as a daemon: archive at start, then on schedule
//	dir-archiver run --config /etc/dir-archiver/config.yaml
//
//	# One pass now, for a single target, without touching anything
//	dir-archiver rotate --target /data/docs --dry-run
//
//	# Show how every archive is classified
//	dir-archiver plan
package main

func main() {
	Execute()
}
