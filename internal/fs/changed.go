package fs

// Changed reports whether a file observed as orig was modified by the time
// it was observed as now. It compares inode, mtime and size.
func Changed(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	if now.Size != orig.Size {
		return true
	}
	return false
}
