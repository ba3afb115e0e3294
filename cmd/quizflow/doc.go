// Copyright (c) QuizFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 QuizFlow 服务端程序入口。

# 概述

cmd/quizflow 是测验求解服务的可执行入口，提供 HTTP API 服务、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、
结构化日志（zap）与 Prometheus 指标采集。

# 核心类型

  - Server           — 主服务器，组装求解管线、注册路由并管理优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、RateLimiter（基于 IP）
  - 求解管线装配：浏览器抓取器、Claude Provider、下载器、编排器
  - 优雅关闭：信号监听 → 关闭 HTTP → 释放浏览器资源
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
