package databricks

import "testing"

func TestNewSessionFactoryValidatesConfig(t *testing.T) {
	valid := Config{
		ServerHostname: " adb-1.azuredatabricks.net ",
		HTTPPath:       "/sql/1.0/warehouses/abc",
		AccessToken:    "dapi-1",
		Port:           443,
	}
	factory, err := NewSessionFactory(valid)
	if err != nil {
		t.Fatalf("NewSessionFactory() error = %v", err)
	}
	if factory.cfg.ServerHostname != "adb-1.azuredatabricks.net" {
		t.Fatalf("ServerHostname = %q", factory.cfg.ServerHostname)
	}

	tests := []func(*Config){
		func(c *Config) { c.ServerHostname = "" },
		func(c *Config) { c.HTTPPath = " " },
		func(c *Config) { c.AccessToken = "" },
		func(c *Config) { c.Port = 0 },
	}
	for i, mutate := range tests {
		cfg := valid
		mutate(&cfg)
		if _, err := NewSessionFactory(cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
