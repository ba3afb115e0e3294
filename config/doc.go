// Package config 提供 QuizFlow 的配置管理功能。
//
// 支持从默认值、YAML 文件和环境变量加载配置，
// 凭证类环境变量（STUDENT_EMAIL、STUDENT_SECRET、ANTHROPIC_API_KEY）
// 拥有最高优先级。
package config
