/*
Package secrets resolves ${secret:name} references in credentials.

Configuration values such as source.git.auth.token may name a secret
instead of holding it:

	source:
	  git:
	    auth:
	      type: token
	      token: ${secret:git-token}

A Manager asks its providers in order. The environment provider reads
VALVE_SECRET_GIT_TOKEN; the file provider reads <dir>/git-token, the
layout of Kubernetes secret mounts. Secret files must not be readable by
group or others.
*/
package secrets
