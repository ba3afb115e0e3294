// Copyright (c) QuizFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 QuizFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 QuizFlow 所有 HTTP 端点的请求处理逻辑，
包括测验任务受理、服务自述、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - QuizHandler      — 测验任务处理器，同步校验凭证、后台启动求解
  - HealthHandler    — 服务健康检查（/health, /ready）
  - RootHandler      — 服务自述与端点清单（/）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（LLM Provider 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 凭证校验失败统一返回 403，且不回显提交的值
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
