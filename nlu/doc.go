// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package nlu 提供单轮话语的轻量级自然语言理解。

# 概述

nlu 将一条用户话语转换为意图、实体、情感/情绪、语言与置信度。
每个维度都采用 "确定性规则优先、外部模型兜底" 的双层策略：
规则层（正则模式、词典计数、字符统计）永远先执行且永远可用，
外部调用失败时其结果即为最终结果。分析器本身从不向调用方抛出
外部错误。

# 主要能力

  - DetectIntent     — 有序意图模式规则，首个命中即返回；无命中时
    发起一次受限分类调用，均未命中返回 UNDETERMINED
  - ExtractEntities  — phone/name/age/date/time 字段模式 + 一次外部
    JSON 抽取调用，键冲突时按可配置的优先策略合并
  - AnalyzeSentiment — 正/负词典计数基线，外部结果可解析时才覆盖
  - DetectLanguage   — 汉字与拉丁字符计数：汉字占优 → zh，
    拉丁超过汉字两倍 → en，其余 → mixed
  - Confidence       — 基于意图/实体/话语长度的单调置信度打分

# 失败语义

所有外部调用失败（超时、限流、不可解析）均被记录日志后吸收，
规则层结果作为权威回退。
*/
package nlu
