// Copyright 2025 DialogFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package session 提供会话级对话上下文的存储与生命周期管理。

# 概述

每个会话持有一份 Context：有序轮次历史、当前对话阶段、已检测意图、
已抽取实体、情绪标签与语言偏好。Context 由会话自身的轮次处理独占
修改，引擎不持有会话内部锁——调用层必须保证同一会话的轮次串行。

# 存储实现

  - MemoryStore — 进程内 map 实现，适用于测试与单实例部署
  - RedisStore  — go-redis 实现，JSON 序列化 + 可配置 TTL，
    供多实例部署在外部协调下共享会话

两种实现对不同会话之间的并发访问都是安全的。
*/
package session
