package utils

import (
	"os"
	"path/filepath"
)

func FileExist(path string) bool {
	_, err := os.Lstat(path)
	return !os.IsNotExist(err)
}

// GetFilePath 按以下顺序查找文件, 找不到返回空字符串:
//  0. 绝对路径, 直接返回
//  1. 可执行文件所在目录
//  2. 当前工作目录
func GetFilePath(fileName string) string {
	if fileName == "" {
		return ""
	}
	if filepath.IsAbs(fileName) {
		return fileName
	}

	if execFile, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(execFile), fileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if workingDir, err := os.Getwd(); err == nil {
		p := filepath.Join(workingDir, fileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
