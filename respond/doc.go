// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

// Package respond 实现回复合成器：根据对话上下文选择回复类别，拼装
// 人设与上下文提示词发起一次外部生成调用，失败时回退到按 (类别, 语言)
// 索引的本地模板，最后经过固定顺序的风格后处理流水线输出。
//
// 合成器保证调用方永远拿到非空回复：外部调用彻底失败时返回本地化的
// 道歉模板，置信度 0.3 并带 IsFallback 标记。
package respond
