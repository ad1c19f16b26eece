package uploads

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jgechelper/backend/pkg/enums"
)

type mimeGroup string

const (
	mimeGroupPDFs  mimeGroup = "pdfs"
	mimeGroupDocs  mimeGroup = "docs"
	mimeGroupImage mimeGroup = "images"
)

var mimeGroupNames = map[mimeGroup]string{
	mimeGroupPDFs:  "PDF",
	mimeGroupDocs:  "Word documents",
	mimeGroupImage: "PNG or JPEG images",
}

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupPDFs:  {"application/pdf"},
	mimeGroupDocs:  {"application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	mimeGroupImage: {"image/png", "image/jpeg"},
}

var allowedMimeGroupsByFolder = map[enums.UploadFolder][]mimeGroup{
	enums.UploadFolderResources: {mimeGroupPDFs, mimeGroupDocs},
	enums.UploadFolderNotices:   {mimeGroupPDFs, mimeGroupImage},
	enums.UploadFolderUploads:   {mimeGroupPDFs, mimeGroupDocs, mimeGroupImage},
}

// sniffLimit matches the number of bytes mimetype inspects by default.
const sniffLimit = 3072

// detect returns the sniffed media type of header and whether folder accepts it.
func detect(folder enums.UploadFolder, header []byte) (string, bool) {
	mt := mimetype.Detect(header)
	for _, group := range allowedMimeGroupsByFolder[folder] {
		for _, candidate := range mimeGroupTypes[group] {
			if mt.Is(candidate) {
				return candidate, true
			}
		}
	}
	return mt.String(), false
}

func allowedDescription(folder enums.UploadFolder) string {
	groups := allowedMimeGroupsByFolder[folder]
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, mimeGroupNames[g])
	}
	switch len(names) {
	case 0:
		return "approved files"
	case 1:
		return names[0]
	case 2:
		return fmt.Sprintf("%s or %s", names[0], names[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	}
}
