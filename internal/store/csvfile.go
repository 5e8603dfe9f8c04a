package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrCorruptTable 表文件无法解析
var ErrCorruptTable = errors.New("corrupt table file")

// readCSVFile 读取表文件，返回表头与数据行
// 非 UTF-8 内容按 GB18030 解码（兼容表格软件导出的旧文件）
func readCSVFile(path string, idColumn string) ([]string, [][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	content, err := decodeText(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	header := records[0]
	if _, ok := newHeaderIndex(header)[idColumn]; !ok {
		return nil, nil, fmt.Errorf("%w: missing column %s", ErrCorruptTable, idColumn)
	}
	return header, records[1:], nil
}

func decodeText(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GB18030.NewDecoder()))
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// encodeCSV 生成带 BOM 的 CSV 内容
func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic 先写同目录临时文件并落盘，再重命名覆盖目标文件
func writeFileAtomic(path string, content []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashBytes(content), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
