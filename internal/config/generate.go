package config

// DefaultConfigTOML is a complete, commented sample procdup.toml.
const DefaultConfigTOML = `# procdup configuration file

[probe]
# log_level = "info"            # debug, info, warn, error
# log_format = "auto"           # auto, json, text
# metrics_file = ""             # write Prometheus metrics here after the run
# poll_interval = "50ms"        # interval between try_wait polls

# Each scenario forks this process once. The duplicate sleeps for delay and
# exits with exit_code; the original checks what it observes.
#
# kind is one of:
#   exit        wait returns exit_code
#   pid         the duplicate reports its pid through a pipe
#   try-wait    try_wait is empty at first and returns exit_code after settle
#   kill        kill stops the duplicate and wait returns promptly
#   wait-twice  two waits return the same status
#   run         a closure runs in the duplicate and exits 0

[scenarios.exit-code]
kind = "exit"
exit_code = 42

[scenarios.pid]
kind = "pid"

[scenarios.try-wait]
kind = "try-wait"
exit_code = 42
delay = "1s"
settle = "2s"

[scenarios.kill]
kind = "kill"
# delay = "1m"                  # how long the duplicate would run if not killed
# expect = 9                    # defaults to the platform's kill status

[scenarios.wait-twice]
kind = "wait-twice"
exit_code = 3

[scenarios.run]
kind = "run"
`
