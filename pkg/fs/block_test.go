package fs

import "testing"

func TestBlockTypeString(t *testing.T) {
	for _, testCase := range []struct {
		blockType BlockType
		wanted    string
	}{
		{BlockTypeSuperblock, "Superblock"},
		{BlockTypeInodeBitmap, "InodeBitmap"},
		{BlockTypeBlockBitmap, "BlockBitmap"},
		{BlockTypeInodeTable, "InodeTable"},
		{BlockTypeUserData, "UserData"},
		{BlockTypeIndirectPointers, "IndirectPointers"},
		{BlockTypeChildrenList, "ChildrenList"},
		{BlockTypeOther, "Other"},
		{BlockType(200), "BlockType(200)"},
	} {
		if found := testCase.blockType.String(); found != testCase.wanted {
			t.Fatalf(
				"BlockType(%d).String(): wanted `%s`; found `%s`",
				uint8(testCase.blockType),
				testCase.wanted,
				found,
			)
		}
	}
}
