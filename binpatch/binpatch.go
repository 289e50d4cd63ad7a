// Package binpatch 解码并应用 git 二进制补丁段。
//
// "GIT binary patch" 的正向段以 "literal <n>" 或 "delta <n>" 开头，
// 正文为 git 专用 base85 编码、zlib 压缩的数据：
//   - literal: 解压结果即新文件的完整内容
//   - delta: 解压结果是针对旧内容的增量流（varint 源/目标大小 + copy/insert 指令）
//
// 解码与应用失败均返回 *BinaryPatchError，由调用方按文件级错误处理。
package binpatch

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind 表示二进制补丁的编码方式
type Kind string

const (
	// KindLiteral 新内容整体替换
	KindLiteral Kind = "literal"
	// KindDelta 基于旧内容的增量编码
	KindDelta Kind = "delta"
)

// Patch 一个已解码的二进制补丁正向段
type Patch struct {
	Kind     Kind
	SizeHint int    // 头部声明的解压后字节数
	Data     []byte // 解压后的数据：literal 为新文件内容，delta 为增量流
}

// git base85 字母表，字符按位置直接映射数值
const base85Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"

var base85Values [256]int16

func init() {
	for i := range base85Values {
		base85Values[i] = -1
	}
	for i := 0; i < len(base85Alphabet); i++ {
		base85Values[base85Alphabet[i]] = int16(i)
	}
}

// Parse 解码一个正向段（parse 层捕获的 BinaryPayload 行）。
// 首行必须是 "literal <n>" 或 "delta <n>"，其余为 base85 编码行
func Parse(payload []string) (*Patch, error) {
	if len(payload) == 0 {
		return nil, &BinaryPatchError{Stage: StageDecode, Msg: "empty binary patch payload"}
	}

	kind, sizeHint, err := parseSectionHeader(payload[0])
	if err != nil {
		return nil, err
	}

	raw, err := decodeBase85Lines(payload[1:])
	if err != nil {
		return nil, err
	}

	data, err := inflate(raw, kind, sizeHint)
	if err != nil {
		return nil, err
	}

	return &Patch{Kind: kind, SizeHint: sizeHint, Data: data}, nil
}

// Apply 按编码方式生成新文件内容。
// literal 直接返回解码数据，delta 对旧内容重放增量流
func Apply(kind Kind, data []byte, old []byte) ([]byte, error) {
	switch kind {
	case KindLiteral:
		return data, nil
	case KindDelta:
		return applyDelta(old, data)
	default:
		return nil, &BinaryPatchError{Stage: StageApply, Msg: fmt.Sprintf("unsupported binary patch kind %q", kind)}
	}
}

// Apply 对旧内容应用本补丁
func (p *Patch) Apply(old []byte) ([]byte, error) {
	return Apply(p.Kind, p.Data, old)
}

// parseSectionHeader 解析 "literal <n>" / "delta <n>" 段头
func parseSectionHeader(header string) (Kind, int, error) {
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return "", 0, &BinaryPatchError{Stage: StageDecode, Msg: fmt.Sprintf("invalid binary section header %q", header)}
	}
	var kind Kind
	switch fields[0] {
	case string(KindLiteral):
		kind = KindLiteral
	case string(KindDelta):
		kind = KindDelta
	default:
		return "", 0, &BinaryPatchError{Stage: StageDecode, Msg: fmt.Sprintf("unknown binary section method %q", fields[0])}
	}
	size, err := strconv.Atoi(fields[1])
	if err != nil || size < 0 {
		return "", 0, &BinaryPatchError{Stage: StageDecode, Msg: fmt.Sprintf("invalid binary section size in %q", header)}
	}
	return kind, size, nil
}

// decodeBase85Lines 逐行解码：行首字符声明载荷长度
// （A–Z=1..26，a–z=27..52），其后每 5 个 base85 字符解出 4 字节（大端）
func decodeBase85Lines(lines []string) ([]byte, error) {
	var out []byte
	for _, line := range lines {
		if line == "" {
			continue
		}
		prefix := line[0]
		encoded := line[1:]
		if len(encoded)%5 != 0 {
			return nil, &BinaryPatchError{Stage: StageDecode,
				Msg: fmt.Sprintf("malformed binary patch line with %d encoded chars", len(encoded))}
		}

		var byteLen int
		switch {
		case prefix >= 'A' && prefix <= 'Z':
			byteLen = int(prefix-'A') + 1
		case prefix >= 'a' && prefix <= 'z':
			byteLen = int(prefix-'a') + 27
		default:
			return nil, &BinaryPatchError{Stage: StageDecode,
				Msg: fmt.Sprintf("invalid binary patch length prefix %q", string(prefix))}
		}

		block := make([]byte, 0, len(encoded)/5*4)
		for i := 0; i < len(encoded); i += 5 {
			var acc uint64
			for j := i; j < i+5; j++ {
				v := base85Values[encoded[j]]
				if v < 0 {
					return nil, &BinaryPatchError{Stage: StageDecode,
						Msg: fmt.Sprintf("invalid character %q in binary patch block", string(encoded[j]))}
				}
				acc = acc*85 + uint64(v)
			}
			block = append(block,
				byte(acc>>24), byte(acc>>16), byte(acc>>8), byte(acc))
		}

		if byteLen > len(block) {
			return nil, &BinaryPatchError{Stage: StageDecode,
				Msg: fmt.Sprintf("binary patch line declared %d bytes but only %d decoded", byteLen, len(block))}
		}
		out = append(out, block[:byteLen]...)
	}
	return out, nil
}

// inflate zlib 解压并校验声明的字节数
func inflate(raw []byte, kind Kind, sizeHint int) ([]byte, error) {
	if len(raw) == 0 && sizeHint == 0 {
		return nil, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &BinaryPatchError{Stage: StageInflate,
			Msg: fmt.Sprintf("failed to decompress %s section", kind), Err: err}
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, &BinaryPatchError{Stage: StageInflate,
			Msg: fmt.Sprintf("failed to decompress %s section", kind), Err: err}
	}
	if len(data) != sizeHint {
		return nil, &BinaryPatchError{Stage: StageInflate,
			Msg: fmt.Sprintf("%s section expected %d bytes after inflate, got %d", kind, sizeHint, len(data))}
	}
	return data, nil
}

// readVarint 读取 git delta 流中的小端 7-bit varint
func readVarint(data []byte, pos int) (int, int, error) {
	var value uint64
	shift := 0
	for {
		if pos >= len(data) {
			return 0, 0, &BinaryPatchError{Stage: StageApply, Msg: "unexpected end of delta stream"}
		}
		b := data[pos]
		pos++
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return int(value), pos, nil
		}
		shift += 7
	}
}

// applyDelta 重放增量流：头部两个 varint 为源/目标大小，
// 指令字节最高位为 copy（offset/size 按标志位展开，size 0 视为 0x10000），
// 其余非零值为字面插入长度，0 为保留指令
func applyDelta(base, delta []byte) ([]byte, error) {
	baseSize, pos, err := readVarint(delta, 0)
	if err != nil {
		return nil, err
	}
	if baseSize != len(base) {
		return nil, &BinaryPatchError{Stage: StageApply,
			Msg: fmt.Sprintf("delta expects source of %d bytes, have %d", baseSize, len(base))}
	}
	resultSize, pos, err := readVarint(delta, pos)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, resultSize)
	for pos < len(delta) {
		opcode := delta[pos]
		pos++
		switch {
		case opcode&0x80 != 0:
			var offset, size int
			for i, bit := range []byte{0x01, 0x02, 0x04, 0x08} {
				if opcode&bit != 0 {
					if pos >= len(delta) {
						return nil, &BinaryPatchError{Stage: StageApply, Msg: "truncated copy offset in delta stream"}
					}
					offset |= int(delta[pos]) << (8 * i)
					pos++
				}
			}
			for i, bit := range []byte{0x10, 0x20, 0x40} {
				if opcode&bit != 0 {
					if pos >= len(delta) {
						return nil, &BinaryPatchError{Stage: StageApply, Msg: "truncated copy size in delta stream"}
					}
					size |= int(delta[pos]) << (8 * i)
					pos++
				}
			}
			if size == 0 {
				size = 0x10000
			}
			if offset+size > len(base) {
				return nil, &BinaryPatchError{Stage: StageApply,
					Msg: fmt.Sprintf("delta copy exceeds source data (%d > %d)", offset+size, len(base))}
			}
			out = append(out, base[offset:offset+size]...)
		case opcode != 0:
			size := int(opcode & 0x7F)
			if pos+size > len(delta) {
				return nil, &BinaryPatchError{Stage: StageApply, Msg: "delta literal overruns patch data"}
			}
			out = append(out, delta[pos:pos+size]...)
			pos += size
		default:
			return nil, &BinaryPatchError{Stage: StageApply, Msg: "encountered reserved delta opcode 0"}
		}
	}

	if len(out) != resultSize {
		return nil, &BinaryPatchError{Stage: StageApply,
			Msg: fmt.Sprintf("delta produced %d bytes, expected %d", len(out), resultSize)}
	}
	return out, nil
}
