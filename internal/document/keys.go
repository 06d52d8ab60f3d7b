package document

// Well-known metadata keys set and read by the built-in modules.
const (
	KeySourceFilePath   = "SourceFilePath"
	KeyRelativeFilePath = "RelativeFilePath"
	KeyFileName         = "FileName"
	KeyFileExtension    = "FileExtension"
	KeyDestinationPath  = "DestinationPath"
	KeyWritePath        = "WritePath"
	KeyTitle            = "Title"
	KeyExcerpt          = "Excerpt"
	KeyHeadings         = "Headings"
	KeyCommits          = "Commits"
	KeyGroupKey         = "GroupKey"
	KeyGroupDocuments   = "GroupDocuments"
	KeyPageDocuments    = "PageDocuments"
	KeyCurrentPage      = "CurrentPage"
	KeyTotalPages       = "TotalPages"
	KeyFingerprint      = "Fingerprint"
)
