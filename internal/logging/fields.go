package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// LookupFields 提供用户查询的公共字段，HTTP 访问日志与 --lookup 模式共用。
func LookupFields(userID, requestID, origin string, cacheHit bool) logrus.Fields {
	fields := logrus.Fields{
		"action":    "user_lookup",
		"user_id":   userID,
		"origin":    origin,
		"cache_hit": cacheHit,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// SourceFields 描述当前回源配置，启动与配置校验日志会带上这些字段。
func SourceFields(sourceType, authMode string, users int) logrus.Fields {
	return logrus.Fields{
		"source_type": sourceType,
		"auth_mode":   authMode,
		"users":       users,
	}
}
