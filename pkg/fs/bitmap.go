package fs

import (
	"fmt"

	"github.com/weberc2/diskfs/pkg/alloc"
	"github.com/weberc2/diskfs/pkg/math"
	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

// InodeBitmap tracks which inode table slots are in use. Bit `i` covers ino
// `i`.
type InodeBitmap struct{ alloc.Bitmap }

// BlockBitmap tracks which blocks are in use. Bit `i` covers block `i`,
// including the superblock and every metadata block.
type BlockBitmap struct{ alloc.Bitmap }

func NewInodeBitmap(sb *Superblock) InodeBitmap {
	return InodeBitmap{alloc.New(uint64(sb.TotalInodes))}
}

func NewBlockBitmap(sb *Superblock) BlockBitmap {
	return BlockBitmap{alloc.New(uint64(sb.TotalBlocks))}
}

func (bm InodeBitmap) Persist(m medium.WriteAll, sb *Superblock) error {
	if err := persistBitmap(
		m,
		sb,
		bm.Bitmap,
		sb.InodeBitmapStart(),
		sb.InodeBitmapBlockCount,
		BlockTypeInodeBitmap,
	); err != nil {
		return fmt.Errorf("persisting inode bitmap: %w", err)
	}
	return nil
}

func (bm BlockBitmap) Persist(m medium.WriteAll, sb *Superblock) error {
	if err := persistBitmap(
		m,
		sb,
		bm.Bitmap,
		sb.BlockBitmapStart(),
		sb.BlockBitmapBlockCount,
		BlockTypeBlockBitmap,
	); err != nil {
		return fmt.Errorf("persisting block bitmap: %w", err)
	}
	return nil
}

func FetchInodeBitmap(m medium.ReadAll, sb *Superblock) (InodeBitmap, error) {
	bm, err := fetchBitmap(
		m,
		sb,
		uint64(sb.TotalInodes),
		sb.InodeBitmapStart(),
		sb.InodeBitmapBlockCount,
		BlockTypeInodeBitmap,
	)
	if err != nil {
		return InodeBitmap{}, fmt.Errorf("fetching inode bitmap: %w", err)
	}
	return InodeBitmap{bm}, nil
}

func FetchBlockBitmap(m medium.ReadAll, sb *Superblock) (BlockBitmap, error) {
	bm, err := fetchBitmap(
		m,
		sb,
		uint64(sb.TotalBlocks),
		sb.BlockBitmapStart(),
		sb.BlockBitmapBlockCount,
		BlockTypeBlockBitmap,
	)
	if err != nil {
		return BlockBitmap{}, fmt.Errorf("fetching block bitmap: %w", err)
	}
	return BlockBitmap{bm}, nil
}

// bitmapBlocks splits the packed bitmap into block-sized chunks starting at
// block `start`. The final chunk is zero padded when persisted.
func bitmapBlocks(
	bm alloc.Bitmap,
	blockSize Byte,
	start Block,
	typ BlockType,
) []BlockBuf {
	raw := bm.Bytes()
	var blocks []BlockBuf
	for offset := Byte(0); offset < Byte(len(raw)); offset += blockSize {
		end := math.Min(offset+blockSize, Byte(len(raw)))
		blocks = append(blocks, BlockBuf{
			Number: start + Block(len(blocks)),
			Type:   typ,
			Data:   raw[offset:end],
		})
	}
	return blocks
}

func persistBitmap(
	m medium.WriteAll,
	sb *Superblock,
	bm alloc.Bitmap,
	start Block,
	count uint8,
	typ BlockType,
) error {
	blocks := bitmapBlocks(bm, sb.BlockSize(), start, typ)
	if len(blocks) > int(count) {
		return fmt.Errorf(
			"`%d` bits need `%d` blocks but only `%d` are reserved: %w",
			bm.Len(),
			len(blocks),
			count,
			CorruptLayoutErr,
		)
	}
	for i := range blocks {
		if err := blocks[i].Persist(m, sb); err != nil {
			return err
		}
	}
	return nil
}

// fetchBitmap reads `count` blocks from `start` and rebuilds a bitmap of
// `bits` bits. Full blocks are copied whole; from the final block only the
// bytes covering the remaining bits are used, so padding on disk is ignored.
func fetchBitmap(
	m medium.ReadAll,
	sb *Superblock,
	bits uint64,
	start Block,
	count uint8,
	typ BlockType,
) (alloc.Bitmap, error) {
	blockSize := sb.BlockSize()
	bitsPerBlock := uint64(blockSize) * 8
	raw := make([]byte, 0, math.DivRoundUp(bits, 8))
	for i := uint8(0); i < count; i++ {
		done := uint64(i) * bitsPerBlock
		if done >= bits {
			break
		}
		block, err := ReadBlockBuf(m, sb, start+Block(i), typ)
		if err != nil {
			return alloc.Bitmap{}, err
		}
		if remaining := bits - done; remaining < bitsPerBlock {
			raw = append(raw, block.Data[:math.DivRoundUp(remaining, 8)]...)
		} else {
			raw = append(raw, block.Data...)
		}
	}
	if uint64(len(raw)) < math.DivRoundUp(bits, 8) {
		return alloc.Bitmap{}, fmt.Errorf(
			"`%d` blocks cannot hold `%d` bits: %w",
			count,
			bits,
			CorruptLayoutErr,
		)
	}
	return alloc.FromBytes(bits, raw), nil
}
