package enums

import "fmt"

// UploadFolder is the blob-store prefix an upload lands under.
type UploadFolder string

const (
	UploadFolderResources UploadFolder = "resources"
	UploadFolderNotices   UploadFolder = "notices"
	UploadFolderUploads   UploadFolder = "uploads"
)

var validUploadFolders = []UploadFolder{
	UploadFolderResources,
	UploadFolderNotices,
	UploadFolderUploads,
}

func (f UploadFolder) String() string {
	return string(f)
}

func (f UploadFolder) IsValid() bool {
	for _, candidate := range validUploadFolders {
		if candidate == f {
			return true
		}
	}
	return false
}

func ParseUploadFolder(value string) (UploadFolder, error) {
	if value == "" {
		return UploadFolderUploads, nil
	}
	for _, candidate := range validUploadFolders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload folder %q", value)
}
